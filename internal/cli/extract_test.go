package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edtools/cagforge/internal/plan"
)

func TestApplyCourseDates(t *testing.T) {
	tests := []struct {
		name      string
		startFlag string
		endFlag   string
		course    plan.Course
		wantStart string
		wantEnd   string
	}{
		{
			"document dates override the defaults",
			"", "",
			plan.Course{StartAt: "2026-01-12", EndAt: "2026-05-04"},
			"2026-01-12 00:00:00", "2026-05-04 23:59:59",
		},
		{
			"flags win over the document",
			"2026-02-01 00:00:00", "2026-06-01 23:59:59",
			plan.Course{StartAt: "2026-01-12", EndAt: "2026-05-04"},
			"2026-02-01 00:00:00", "2026-06-01 23:59:59",
		},
		{
			"defaults survive when the document is silent",
			"", "",
			plan.Course{},
			"2025-08-26 00:00:00", "2025-12-15 23:59:59",
		},
		{
			"start and end resolve independently",
			"", "",
			plan.Course{StartAt: "2026-01-12"},
			"2026-01-12 00:00:00", "2025-12-15 23:59:59",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &plan.BuildRequest{
				StartDate: "2025-08-26 00:00:00",
				EndDate:   "2025-12-15 23:59:59",
				Course:    tt.course,
			}
			applyCourseDates(req, tt.startFlag, tt.endFlag)
			assert.Equal(t, tt.wantStart, req.StartDate)
			assert.Equal(t, tt.wantEnd, req.EndDate)
		})
	}
}
