package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDMarshal(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want string
	}{
		{"synthesized token stays a string", "d1", `"d1"`},
		{"numeric token becomes a number", "9001", `9001`},
		{"empty stays a string", "", `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestIDUnmarshal(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"q2"`), &id))
	assert.Equal(t, ID("q2"), id)

	require.NoError(t, json.Unmarshal([]byte(`520211`), &id))
	assert.Equal(t, ID("520211"), id)
	assert.True(t, id.IsNumeric())
	assert.Equal(t, int64(520211), id.Int64())

	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestCounters(t *testing.T) {
	c := &Counters{}
	assert.Equal(t, ID("q1"), c.NextAssignmentID(TypeQuiz))
	assert.Equal(t, ID("q2"), c.NextAssignmentID(TypeClassicQuiz))
	assert.Equal(t, ID("d1"), c.NextAssignmentID(TypeDiscussion))
	assert.Equal(t, ID("a1"), c.NextAssignmentID(TypeAssignment))
	assert.Equal(t, ID("q3"), c.NextAssignmentID(TypeQuiz))
	assert.Equal(t, ID("p1"), c.NextPageID())
}

func TestEnsureShapeEmitsEveryKey(t *testing.T) {
	course := Course{Modules: []Module{{ID: 1, Name: "Module 1", Number: 1, Position: 4}}}
	course.EnsureShape()

	data, err := json.Marshal(course)
	require.NoError(t, err)

	for _, key := range []string{
		`"objectives":[]`, `"textbooks":[]`, `"instructor":[]`,
		`"assessments":[]`, `"assignments":[]`, `"content":[]`, `"pages":[]`, `"files":[]`,
	} {
		assert.Contains(t, string(data), key)
	}
}

func TestBuildRequestRoundTrip(t *testing.T) {
	req := BuildRequest{
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
		Course: Course{
			CourseCode: "BUS301",
			Modules: []Module{{
				ID: 1, Name: "Module 1", Number: 1, Position: 4,
				Assignments: []Assignment{
					{ID: "d1", Name: "Discussion: Intro", Type: TypeDiscussion},
					{ID: "9001", Name: "Essay", Type: TypeAssignment},
				},
			}},
		},
	}
	req.Course.EnsureShape()

	data, err := Marshal(req)
	require.NoError(t, err)

	// Numeric ids are written as JSON numbers, tokens as strings.
	assert.Contains(t, string(data), `"id": "d1"`)
	assert.Contains(t, string(data), `"id": 9001`)

	var back BuildRequest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, req, back)
}

func TestNormalizeCourse(t *testing.T) {
	raw := map[string]any{
		"course_code": "BUS301",
		"year":        float64(2025),
		"credits":     json.Number("3"),
		"objectives":  []any{"Explain X", "Apply frameworks"},
		"instructor":  []any{map[string]any{"name": "Dana Feld", "email": "dana@example.edu"}},
		"modules": []any{
			map[string]any{
				"name":       "Module 1",
				"objectives": []any{"Define terms"},
				"assignments": []any{
					map[string]any{"id": float64(9001), "name": "Essay", "type": "assignment"},
					map[string]any{"id": "d1", "name": "Discussion", "type": "discussion"},
				},
			},
			map[string]any{"name": "Module 2"},
		},
	}

	course := NormalizeCourse(raw)

	assert.Equal(t, "BUS301", course.CourseCode)
	assert.Equal(t, 2025, course.Year)
	assert.Equal(t, 3, course.Credits)
	require.Len(t, course.Instructor, 1)
	assert.Equal(t, "dana@example.edu", course.Instructor[0].Email)

	require.Len(t, course.Modules, 2)
	// Missing module numbering is backfilled from document order.
	assert.Equal(t, 1, course.Modules[0].Number)
	assert.Equal(t, 4, course.Modules[0].Position)
	assert.Equal(t, 2, course.Modules[1].Number)
	assert.Equal(t, 5, course.Modules[1].Position)

	require.Len(t, course.Modules[0].Assignments, 2)
	assert.Equal(t, ID("9001"), course.Modules[0].Assignments[0].ID)
	assert.Equal(t, ID("d1"), course.Modules[0].Assignments[1].ID)
}
