package builder

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

// Templates are the five HTML skeletons pulled from the target course
// and rewritten with substitution markers.
type Templates struct {
	Page        string
	Assignment  string
	Discussion  string
	NewQuiz     string
	ClassicQuiz string
}

var (
	overviewSectionRe    = regexp.MustCompile(`(?i)<h2>.*Module Overview.*</strong></h2>([\s\S]*?)<hr`)
	contentSectionRe     = regexp.MustCompile(`(?i)<h2>.*Content.*</strong></h2>\n([\s\S]*?)<hr`)
	assessmentsSectionRe = regexp.MustCompile(`(?i)<h2>.*Assessments</strong></h2>\n([\s\S]*)`)
	taskOverviewRe       = regexp.MustCompile(`(?i)<h2>.*Overview</strong></h2>([\s\S]*?)<hr`)
	guidelinesHrRe       = regexp.MustCompile(`(?i)<h2>.*Guidelines</strong></h2>([\s\S]*?)<hr`)
	guidelinesTailRe     = regexp.MustCompile(`(?i)<h2>.*Guidelines</strong></h2>([\s\S]*)`)
	promptSectionRe      = regexp.MustCompile(`(?i)<h2>.*Prompt</strong></h2>([\s\S]*?)<hr`)
	sampleHintRe         = regexp.MustCompile(`(?i)<p.*Please see the sample below.*</p>`)
)

// resolveTemplates loads all five templates from the target course. Any
// missing template is a 404-class error telling the operator to create
// it first.
func (b *Builder) resolveTemplates(ctx context.Context, req *plan.BuildRequest) (*Templates, error) {
	page, err := b.overviewPageTemplate(ctx, req.CourseID, req.OverviewPageTemplate)
	if err != nil {
		return nil, err
	}
	assignment, err := b.assignmentTemplate(ctx, req.CourseID, req.AssignmentTemplate)
	if err != nil {
		return nil, err
	}
	discussion, err := b.discussionTemplate(ctx, req.CourseID, req.DiscussionTemplate)
	if err != nil {
		return nil, err
	}
	newQuiz, err := b.newQuizTemplate(ctx, req.CourseID, req.NewQuizTemplate)
	if err != nil {
		return nil, err
	}
	classicQuiz, err := b.classicQuizTemplate(ctx, req.CourseID, req.ClassicQuizTemplate)
	if err != nil {
		return nil, err
	}
	return &Templates{
		Page:        page,
		Assignment:  assignment,
		Discussion:  discussion,
		NewQuiz:     newQuiz,
		ClassicQuiz: classicQuiz,
	}, nil
}

func (b *Builder) overviewPageTemplate(ctx context.Context, courseID int, title string) (string, error) {
	pages, err := b.api.ListPages(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("list pages: %w", err)
	}
	for _, page := range pages {
		if page.Title != title {
			continue
		}
		body := page.Body
		if body == "" {
			// Page listings omit bodies; fetch the full page.
			full, err := b.api.GetPage(ctx, courseID, page.URL)
			if err != nil {
				return "", fmt.Errorf("fetch template page %q: %w", title, err)
			}
			body = full.Body
		}

		body = overviewSectionRe.ReplaceAllString(body, "<div id = 'objectives'>[objectives]</div>")
		body = contentSectionRe.ReplaceAllString(body,
			"<p>Read and view the following:</p><div id = 'content'>[content]</div>")
		body = assessmentsSectionRe.ReplaceAllString(body,
			"<p>In order to successfully complete this module, you will complete the following activities and assignments:</p><div id = 'assessments'>[assessments]</div>")
		body = strings.ReplaceAll(body,
			`[change to "Module Objectives" if you have specific objectives for this module]`, "")
		body = strings.ReplaceAll(body, "Module Overview", "Module Objectives")
		return "[overview]" + body, nil
	}
	return "", errf(404, "template page %q not found in course %d, create the page first", title, courseID)
}

func (b *Builder) assignmentTemplate(ctx context.Context, courseID int, name string) (string, error) {
	assignments, err := b.api.ListAssignments(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range assignments {
		if a.Name != name {
			continue
		}
		if a.Description == "" {
			return "", errf(404, "template assignment %q in course %d is missing a description", name, courseID)
		}
		body := taskOverviewRe.ReplaceAllString(a.Description, "<div id = 'overview'>[overview]</div>")
		body = guidelinesHrRe.ReplaceAllString(body, "<div id = 'guidelines'>[guidelines]</div>")
		return sampleHintRe.ReplaceAllString(body, ""), nil
	}
	return "", errf(404, "template assignment %q not found in course %d, create the assignment first", name, courseID)
}

func (b *Builder) discussionTemplate(ctx context.Context, courseID int, title string) (string, error) {
	discussions, err := b.api.ListDiscussions(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("list discussions: %w", err)
	}
	for _, d := range discussions {
		if d.Title != title {
			continue
		}
		if d.Message == "" {
			return "", errf(404, "template discussion %q in course %d is missing a message body", title, courseID)
		}
		body := promptSectionRe.ReplaceAllString(d.Message, "<div id = 'prompt'>[prompt]</div>")
		body = guidelinesHrRe.ReplaceAllString(body, "<div id = 'guidelines'>[guidelines]</div>")
		return sampleHintRe.ReplaceAllString(body, ""), nil
	}
	return "", errf(404, "template discussion %q not found in course %d, create the discussion first", title, courseID)
}

func (b *Builder) newQuizTemplate(ctx context.Context, courseID int, title string) (string, error) {
	quizzes, err := b.api.ListNewQuizzes(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("list new quizzes: %w", err)
	}
	for _, q := range quizzes {
		if q.Title != title {
			continue
		}
		if q.Instructions == "" {
			return "", errf(404, "template quiz %q in course %d is missing instructions", title, courseID)
		}
		return guidelinesTailRe.ReplaceAllString(q.Instructions, "<div id = 'guidelines'>[guidelines]</div>"), nil
	}
	return "", errf(404, "template quiz %q not found in course %d, create the quiz first", title, courseID)
}

func (b *Builder) classicQuizTemplate(ctx context.Context, courseID int, title string) (string, error) {
	quizzes, err := b.api.ListQuizzes(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("list quizzes: %w", err)
	}
	for _, q := range quizzes {
		if q.Title != title {
			continue
		}
		if q.Description == "" {
			return "", errf(404, "template classic quiz %q in course %d is missing a description", title, courseID)
		}
		body := guidelinesHrRe.ReplaceAllString(q.Description, "<div id = 'guidelines'>[guidelines]</div>")
		return sampleHintRe.ReplaceAllString(body, ""), nil
	}
	return "", errf(404, "template classic quiz %q not found in course %d, create the classic quiz first", title, courseID)
}
