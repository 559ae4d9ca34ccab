package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtools/cagforge/internal/plan"
)

func validRequest() plan.BuildRequest {
	req := plan.BuildRequest{
		CourseID:                43110,
		StartDate:               "2025-08-26 00:00:00",
		EndDate:                 "2025-12-15 23:59:59",
		DefaultDueDay:           6,
		DefaultDiscussionDueDay: 3,
		DefaultLastDay:          4,
		BuildType:               2,
		OverviewPageTemplate:    "Module 1: Overview",
		DiscussionTemplate:      "Group Discussion: [Title Here]",
		AssignmentTemplate:      "Individual Assignment: [Title Here]",
		NewQuizTemplate:         "New Quiz: [Title Here]",
		ClassicQuizTemplate:     "Classic Quiz: [Title Here]",
		Course: plan.Course{
			CourseCode:   "BUS301",
			CourseName:   "Strategic Management",
			Description:  "Strategy from analysis to execution.",
			Instructor:   []plan.Instructor{{Name: "Dana Feld", Email: "dana@example.edu"}},
			Year:         2025,
			Term:         "Fall",
			StartAt:      "2025-08-26",
			EndAt:        "2025-12-15",
			Credits:      3,
			Objectives:   []string{"Explain X"},
			Textbooks:    []string{"Grant, Contemporary Strategy Analysis"},
			CoursePolicy: "Late submissions lose ten percent per day.",
			Modules: []plan.Module{{
				ID: 1, Name: "Module 1", Number: 1, Position: 4,
				Objectives: []string{"Explain X"},
				Assignments: []plan.Assignment{
					{ID: "d1", Name: "Discussion: Intro", Type: plan.TypeDiscussion},
				},
				Content: []string{"Read chapter 1"},
			}},
		},
	}
	req.Course.EnsureShape()
	return req
}

func marshalRequest(t *testing.T, req plan.BuildRequest) []byte {
	t.Helper()
	data, err := plan.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestValidate_CompleteRequestPasses(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(marshalRequest(t, validRequest())))
}

func TestValidate_ViolationsListEveryPath(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(marshalRequest(t, validRequest()), &payload))
	payload["build_type"] = 3
	payload["default_due_day"] = 9

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	verr := v.Validate(raw)
	require.Error(t, verr)

	var violation *ViolationError
	require.ErrorAs(t, verr, &violation)
	assert.Equal(t, []string{"$.build_type", "$.default_due_day"}, violation.Paths)
	assert.Contains(t, verr.Error(), "$.build_type")
}

func TestValidate_BadAssignmentType(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	req := validRequest()
	req.Course.Modules[0].Assignments[0].Type = "essay"

	verr := v.Validate(marshalRequest(t, req))
	var violation *ViolationError
	require.ErrorAs(t, verr, &violation)
	assert.Equal(t, []string{"$.course.modules.0.assignments.0.type"}, violation.Paths)
}

func TestValidate_MalformedJSON(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.ErrorContains(t, v.Validate([]byte("{not json")), "parse payload")
}
