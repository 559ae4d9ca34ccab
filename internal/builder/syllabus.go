package builder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

var (
	instructorSectionRe = regexp.MustCompile(`(?i)<h3.*>.*Instructor Information</h3>\n([\s\S]*?)<p`)
	outcomesSectionRe   = regexp.MustCompile(`(?i)<h3.*>.*Course Learning Outcomes</h3>([\s\S]*?)<p`)
	textbooksSectionRe  = regexp.MustCompile(`(?i)<h3.*>.*Required Textbooks.*</h3>\n([\s\S]*?)<p`)
)

// renderSyllabusTemplate rewrites the three list sections of the live
// syllabus into substitution markers.
func renderSyllabusTemplate(raw string) string {
	if raw == "" {
		return ""
	}
	s := instructorSectionRe.ReplaceAllString(raw, "<div id = 'instructors'>[instructors]</div>")
	s = outcomesSectionRe.ReplaceAllString(s, "<div id = 'objectives'>[objectives]</div>")
	s = textbooksSectionRe.ReplaceAllString(s, "<div id = 'textbooks'>[textbooks]</div>")
	return s
}

// updateSyllabus fills the syllabus placeholders from the extracted
// course and writes the result back. The red highlight styling on
// placeholder text is stripped only once every placeholder was filled,
// leaving unfinished spots visibly marked for the instructor.
func (b *Builder) updateSyllabus(ctx context.Context, req *plan.BuildRequest, stats *Stats) error {
	live, err := b.api.GetCourse(ctx, req.CourseID)
	if err != nil {
		return fmt.Errorf("fetch syllabus: %w", err)
	}

	course := &req.Course
	body := renderSyllabusTemplate(live.SyllabusBody)
	done := true

	replace := func(placeholder, value string) {
		if value == "" {
			done = false
			return
		}
		body = strings.ReplaceAll(body, placeholder, value)
	}

	replace("[Course Code]", course.CourseCode)
	replace("[Course Name]", course.CourseName)
	replace("[Course Description]", course.Description)
	replace("[Year]", zeroBlank(course.Year))
	replace("[Term]", course.Term)
	replace("[StartDate]", course.StartAt)
	replace("[EndDate]", course.EndAt)
	replace("[#]", zeroBlank(course.Credits))
	replace("[objectives]", bulletList(course.Objectives))
	replace("[textbooks]", bulletList(course.Textbooks))
	replace("[instructors]", instructorList(course.Instructor))
	replace("[Course Policies]", course.CoursePolicy)

	if done {
		body = strings.ReplaceAll(body, ` style="color: #e03e2d;"`, "")
	}

	if err := b.api.UpdateSyllabus(ctx, req.CourseID, body); err != nil {
		return fmt.Errorf("update syllabus: %w", err)
	}
	stats.SyllabusUpdated = true
	return nil
}

func zeroBlank(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(item)
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func instructorList(instructors []plan.Instructor) string {
	var parts []string
	for _, ins := range instructors {
		name := ins.Name
		if name == "" {
			name = "Instructor"
		}
		if ins.Email != "" {
			parts = append(parts, fmt.Sprintf("<li>%s (<a href='mailto:%s'>%s</a>) [Office hours]</li>",
				name, ins.Email, ins.Email))
		} else {
			parts = append(parts, fmt.Sprintf("<li>%s [Office hours]</li>", name))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "<ul>" + strings.Join(parts, "") + "</ul>"
}
