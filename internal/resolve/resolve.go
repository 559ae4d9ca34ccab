// Package resolve fills required-but-empty build-request fields, either by
// prompting the operator or by failing fast with the full gap list in
// batch mode. The gap detection and application are pure; the prompting IO
// sits behind the Resolver interface.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

// Gap names one empty field and how to ask for it.
type Gap struct {
	Field    string
	Prompt   string
	Default  string
	Required bool
}

// GapError enumerates required fields that stayed empty in batch mode.
// The schema tolerates empty values; this is the one stage that does not.
type GapError struct {
	Fields []string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Resolver supplies values for gaps. The terminal implementation prompts;
// tests use a fixed map.
type Resolver interface {
	Resolve(gaps []Gap) (map[string]string, error)
}

// Missing returns the fixed required-field gaps still empty in the
// request: target course id, course date range, textbooks, policy text.
func Missing(req *plan.BuildRequest) []Gap {
	var gaps []Gap
	if req.CourseID == -1 {
		gaps = append(gaps, Gap{Field: "course_id", Prompt: "Missing course_id (Canvas course ID)", Required: true})
	}
	if req.Course.StartAt == "" {
		gaps = append(gaps, Gap{Field: "start_at", Prompt: "Missing start_at (YYYY-MM-DD)", Required: true})
	}
	if req.Course.EndAt == "" {
		gaps = append(gaps, Gap{Field: "end_at", Prompt: "Missing end_at (YYYY-MM-DD)", Required: true})
	}
	if len(req.Course.Textbooks) == 0 {
		gaps = append(gaps, Gap{Field: "textbooks", Prompt: "Missing textbooks. Enter textbooks separated by |", Required: true})
	}
	if req.Course.CoursePolicy == "" {
		gaps = append(gaps, Gap{Field: "course_policy", Prompt: "Missing course_policy", Required: true})
	}
	return gaps
}

// Optional returns gaps for descriptive course fields worth prompting for
// in interactive mode but tolerated when left empty.
func Optional(course *plan.Course) []Gap {
	var gaps []Gap
	if course.CourseCode == "" {
		gaps = append(gaps, Gap{Field: "course_code", Prompt: "Missing course_code"})
	}
	if course.CourseName == "" {
		gaps = append(gaps, Gap{Field: "course_name", Prompt: "Missing course_name"})
	}
	if course.Description == "" {
		gaps = append(gaps, Gap{Field: "description", Prompt: "Missing description"})
	}
	if len(course.Instructor) == 0 || course.Instructor[0].Name == "" {
		gaps = append(gaps, Gap{Field: "instructor", Prompt: "Missing instructor name"})
	}
	if course.Year == 0 {
		gaps = append(gaps, Gap{Field: "year", Prompt: "Missing year"})
	}
	if course.Term == "" {
		gaps = append(gaps, Gap{Field: "term", Prompt: "Missing term"})
	}
	if course.Credits == 0 {
		gaps = append(gaps, Gap{Field: "credits", Prompt: "Missing credits"})
	}
	if len(course.Objectives) == 0 {
		gaps = append(gaps, Gap{Field: "objectives", Prompt: "Missing objectives. Enter objectives separated by |"})
	}
	return gaps
}

// Apply writes resolved values into the request. Unknown fields are
// ignored; list fields are pipe-separated.
func Apply(req *plan.BuildRequest, values map[string]string) {
	for field, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch field {
		case "course_id":
			if n, err := strconv.Atoi(value); err == nil {
				req.CourseID = n
			}
		case "start_at":
			req.Course.StartAt = value
		case "end_at":
			req.Course.EndAt = value
		case "textbooks":
			req.Course.Textbooks = splitPipeList(value)
		case "course_policy":
			req.Course.CoursePolicy = value
		case "course_code":
			req.Course.CourseCode = value
		case "course_name":
			req.Course.CourseName = value
		case "description":
			req.Course.Description = value
		case "instructor":
			if len(req.Course.Instructor) == 0 {
				req.Course.Instructor = []plan.Instructor{{Name: value, Email: ""}}
			} else {
				req.Course.Instructor[0].Name = value
			}
		case "year":
			if n, err := strconv.Atoi(value); err == nil {
				req.Course.Year = n
			}
		case "term":
			req.Course.Term = value
		case "credits":
			if n, err := strconv.Atoi(value); err == nil {
				req.Course.Credits = n
			}
		case "objectives":
			req.Course.Objectives = splitPipeList(value)
		}
	}
	req.Course.EnsureShape()
}

// Run resolves the request's gaps. In batch mode any required gap is
// terminal and the error lists all of them. In interactive mode the
// resolver is asked for required and optional gaps together.
func Run(req *plan.BuildRequest, interactive bool, resolver Resolver) error {
	required := Missing(req)

	if !interactive {
		if len(required) == 0 {
			return nil
		}
		fields := make([]string, len(required))
		for i, gap := range required {
			fields[i] = gap.Field
		}
		return &GapError{Fields: fields}
	}

	gaps := append(Optional(&req.Course), required...)
	if len(gaps) == 0 {
		return nil
	}
	values, err := resolver.Resolve(gaps)
	if err != nil {
		return fmt.Errorf("resolve fields: %w", err)
	}
	Apply(req, values)
	return nil
}

// RewriteCourseLinks replaces the {courseid} placeholder in file-embed
// links once the target course id is known.
func RewriteCourseLinks(course *plan.Course, courseID int) {
	if courseID <= 0 {
		return
	}
	marker := "/courses/{courseid}/files/"
	replacement := fmt.Sprintf("/courses/%d/files/", courseID)
	for mi := range course.Modules {
		for ci, item := range course.Modules[mi].Content {
			course.Modules[mi].Content[ci] = strings.ReplaceAll(item, marker, replacement)
		}
	}
}

func splitPipeList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
