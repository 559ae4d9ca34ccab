package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/docx"
	"github.com/edtools/cagforge/internal/plan"
)

// Document section headings, in document order.
const (
	headingTextbook   = "Textbook:"
	headingPolicy     = "Course policy"
	headingOverview   = "Course Overview"
	headingObjectives = "Current Course Objectives"
	headingGrid       = "Course alignment grid"
)

// sectionParagraphs collects normalized paragraphs between two headings.
// Heading matches are exact after normalization, case-insensitive.
func sectionParagraphs(doc *docx.Document, startHeading, endHeading string) []string {
	var out []string
	capture := false
	startKey := strings.ToLower(startHeading)
	endKey := strings.ToLower(endHeading)

	for _, para := range doc.Paragraphs {
		text := normalizeText(para.Text)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		if lower == startKey {
			capture = true
			continue
		}
		if capture && endKey != "" && lower == endKey {
			break
		}
		if capture {
			out = append(out, text)
		}
	}
	return out
}

// ExtractCourse runs the deterministic pass over an extracted document:
// labeled metadata, sectioned blocks, then the alignment table.
// contentCourseID parameterizes file-embed links; pass the "{courseid}"
// sentinel when the target course is not yet known.
func ExtractCourse(doc *docx.Document, contentCourseID string) (plan.Course, []string, error) {
	var course plan.Course

	var sb strings.Builder
	for _, para := range doc.Paragraphs {
		sb.WriteString(para.Text)
		sb.WriteString("\n")
	}
	paragraphText := sb.String()

	course.CourseCode = valueAfterLabel(paragraphText, "Course Code")
	course.CourseName = valueAfterLabel(paragraphText, "Course title")
	course.Term = valueAfterLabel(paragraphText, "Term")
	course.StartAt = valueAfterLabel(paragraphText, "Start_at")
	course.EndAt = valueAfterLabel(paragraphText, "End_at")

	if instructor := valueAfterLabel(paragraphText, "Instructor"); instructor != "" {
		course.Instructor = []plan.Instructor{{Name: instructor, Email: ""}}
	}
	if year := valueAfterLabel(paragraphText, "Year"); year != "" {
		if n, err := strconv.Atoi(year); err == nil {
			course.Year = n
		}
	}
	if credits := valueAfterLabel(paragraphText, "Credit"); credits != "" {
		if n, err := strconv.Atoi(credits); err == nil {
			course.Credits = n
		}
	}

	course.Textbooks = sectionParagraphs(doc, headingTextbook, headingPolicy)
	course.CoursePolicy = strings.TrimSpace(strings.Join(
		filterPolicyLines(sectionParagraphs(doc, headingPolicy, headingOverview)), " "))

	for _, para := range sectionParagraphs(doc, headingOverview, headingObjectives) {
		if strings.EqualFold(para, "course description") {
			continue
		}
		course.Description = para
		break
	}

	for _, item := range sectionParagraphs(doc, headingObjectives, headingGrid) {
		if cleaned := stripObjectiveNoise(item); cleaned != "" {
			course.Objectives = append(course.Objectives, cleaned)
		}
	}

	if len(doc.Tables) == 0 {
		return course, nil, fmt.Errorf("no tables found in document: expected an alignment grid table")
	}

	counters := &plan.Counters{}
	modules, warnings, err := buildModules(doc.Tables[0], contentCourseID, counters)
	if err != nil {
		return course, warnings, err
	}
	course.Modules = modules
	course.EnsureShape()
	return course, warnings, nil
}

// filterPolicyLines drops sub-headings and short fragments from the policy
// section, keeping sentences with actual policy text.
func filterPolicyLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		if strings.HasSuffix(line, ":") {
			continue
		}
		if !strings.Contains(line, ".") && !strings.Contains(line, ":") && len(strings.Fields(line)) <= 6 {
			continue
		}
		out = append(out, line)
	}
	return out
}
