package plan

import (
	"encoding/json"
	"strconv"
)

// NormalizeCourse coerces an untrusted decoded JSON object (typically LLM
// output) into the canonical course shape. Unknown or mistyped values
// collapse to explicit empty values; module ids, numbers and positions are
// backfilled from document order when absent.
func NormalizeCourse(raw map[string]any) Course {
	course := Course{
		CourseCode:   asString(raw["course_code"]),
		CourseName:   asString(raw["course_name"]),
		Description:  asString(raw["description"]),
		Instructor:   asInstructors(raw["instructor"]),
		Year:         asInt(raw["year"]),
		Term:         asString(raw["term"]),
		StartAt:      asString(raw["start_at"]),
		EndAt:        asString(raw["end_at"]),
		Credits:      asInt(raw["credits"]),
		Objectives:   asStringSlice(raw["objectives"]),
		Textbooks:    asStringSlice(raw["textbooks"]),
		CoursePolicy: asString(raw["course_policy"]),
	}

	if modules, ok := raw["modules"].([]any); ok {
		for i, m := range modules {
			course.Modules = append(course.Modules, normalizeModule(m, i+1))
		}
	}
	course.EnsureShape()
	return course
}

func normalizeModule(raw any, index int) Module {
	obj, _ := raw.(map[string]any)

	module := Module{
		ID:         asIntDefault(obj["id"], index),
		Name:       asString(obj["name"]),
		Number:     asIntDefault(obj["number"], index),
		Position:   asIntDefault(obj["position"], index+3),
		Overview:   asString(obj["overview"]),
		Objectives: asStringSlice(obj["objectives"]),
		Content:    asStringSlice(obj["content"]),
	}

	if assignments, ok := obj["assignments"].([]any); ok {
		for _, a := range assignments {
			if entry, ok := a.(map[string]any); ok {
				module.Assignments = append(module.Assignments, Assignment{
					ID:   asID(entry["id"]),
					Name: asString(entry["name"]),
					Type: asString(entry["type"]),
				})
			}
		}
	}
	if pages, ok := obj["pages"].([]any); ok {
		for _, p := range pages {
			if entry, ok := p.(map[string]any); ok {
				module.Pages = append(module.Pages, Page{
					ID:    asID(entry["id"]),
					Title: asString(entry["title"]),
				})
			}
		}
	}
	if files, ok := obj["files"].([]any); ok {
		for _, f := range files {
			if entry, ok := f.(map[string]any); ok {
				module.Files = append(module.Files, File{
					ID:   asInt(entry["id"]),
					Name: asString(entry["name"]),
				})
			}
		}
	}

	module.EnsureShape()
	return module
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v any) int {
	return asIntDefault(v, 0)
}

func asIntDefault(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

func asID(v any) ID {
	switch s := v.(type) {
	case string:
		return ID(s)
	case float64:
		return ID(strconv.FormatInt(int64(s), 10))
	case json.Number:
		return ID(s.String())
	default:
		return ""
	}
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asInstructors(v any) []Instructor {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Instructor
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			out = append(out, Instructor{
				Name:  asString(entry["name"]),
				Email: asString(entry["email"]),
			})
		}
	}
	return out
}
