// Package builder turns a validated buildRequest into a live Canvas
// course: syllabus, assignments, discussions, quizzes, modules, pages
// and module items. All Canvas access goes through the CourseAPI
// interface so the whole build can run against a fake in tests.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/edtools/cagforge/internal/canvas"
	"github.com/edtools/cagforge/internal/plan"
)

// CourseAPI is the slice of the Canvas API the builder touches.
type CourseAPI interface {
	GetCourse(ctx context.Context, courseID int) (*canvas.Course, error)
	UpdateSyllabus(ctx context.Context, courseID int, body string) error

	ListAssignments(ctx context.Context, courseID int) ([]canvas.Assignment, error)
	GetAssignment(ctx context.Context, courseID int, assignmentID int64) (*canvas.Assignment, error)
	CreateAssignment(ctx context.Context, courseID int, params canvas.AssignmentParams) (*canvas.Assignment, error)
	EditAssignment(ctx context.Context, courseID int, assignmentID int64, params canvas.AssignmentParams) (*canvas.Assignment, error)

	ListDiscussions(ctx context.Context, courseID int) ([]canvas.DiscussionTopic, error)
	CreateDiscussion(ctx context.Context, courseID int, params canvas.DiscussionParams) (*canvas.DiscussionTopic, error)
	EditDiscussion(ctx context.Context, courseID int, topicID int64, params canvas.DiscussionParams) (*canvas.DiscussionTopic, error)

	ListQuizzes(ctx context.Context, courseID int) ([]canvas.Quiz, error)
	CreateQuiz(ctx context.Context, courseID int, params canvas.QuizParams) (*canvas.Quiz, error)
	EditQuiz(ctx context.Context, courseID int, quizID int64, params canvas.QuizParams) (*canvas.Quiz, error)

	ListNewQuizzes(ctx context.Context, courseID int) ([]canvas.NewQuiz, error)
	CreateNewQuiz(ctx context.Context, courseID int, params canvas.NewQuizParams) (*canvas.NewQuiz, error)
	EditNewQuiz(ctx context.Context, courseID int, quizID int64, params canvas.NewQuizParams) (*canvas.NewQuiz, error)

	ListPages(ctx context.Context, courseID int) ([]canvas.Page, error)
	GetPage(ctx context.Context, courseID int, pageURL string) (*canvas.Page, error)
	CreatePage(ctx context.Context, courseID int, params canvas.PageParams) (*canvas.Page, error)

	CreateModule(ctx context.Context, courseID int, params canvas.ModuleParams) (*canvas.Module, error)
	CreateModuleItem(ctx context.Context, courseID int, moduleID int64, params canvas.ModuleItemParams) (*canvas.ModuleItem, error)

	ListAssignmentGroups(ctx context.Context, courseID int) ([]canvas.AssignmentGroup, error)
	CreateAssignmentGroup(ctx context.Context, courseID int, name string, position int) (*canvas.AssignmentGroup, error)
}

var _ CourseAPI = (*canvas.Client)(nil)

// Options controls one build run.
type Options struct {
	FilesRoot    string
	BaseURL      string
	DryRun       bool
	ConfirmWrite bool
}

// Stats counts every write performed during a build.
type Stats struct {
	AssignmentsCreated    int  `json:"assignments_created"`
	AssignmentsUpdated    int  `json:"assignments_updated"`
	DiscussionsCreated    int  `json:"discussions_created"`
	DiscussionsUpdated    int  `json:"discussions_updated"`
	NewQuizzesCreated     int  `json:"new_quizzes_created"`
	NewQuizzesUpdated     int  `json:"new_quizzes_updated"`
	ClassicQuizzesCreated int  `json:"classic_quizzes_created"`
	ClassicQuizzesUpdated int  `json:"classic_quizzes_updated"`
	ModulesCreated        int  `json:"modules_created"`
	ModuleItemsCreated    int  `json:"module_items_created"`
	PagesCreated          int  `json:"pages_created"`
	SyllabusUpdated       bool `json:"syllabus_updated"`
}

// Artifacts names the JSON files a build leaves on disk.
type Artifacts struct {
	ModulesFile string `json:"modules_file"`
	BuiltFile   string `json:"built_file"`
}

// Result is the build outcome handed back to the CLI.
type Result struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CourseURL string    `json:"course_url"`
	Artifacts Artifacts `json:"artifacts"`
	DryRun    bool      `json:"dry_run"`
	Stats     *Stats    `json:"stats,omitempty"`
}

// Error is a build failure with an HTTP-like status code, 400 for bad
// input and 404 for missing templates.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Run executes one build against the target course.
//
// The sequence mirrors the server it replaces: validate, write the
// modules artifact, resolve the five templates, stop there on dry run,
// then update the syllabus, map or upsert assignments per build_type,
// create modules and write the built artifact.
func (b *Builder) Run(ctx context.Context, req *plan.BuildRequest) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req.Course.EnsureShape()

	courseID := req.CourseID
	if _, err := b.api.GetCourse(ctx, courseID); err != nil {
		return nil, fmt.Errorf("fetch course %d: %w", courseID, err)
	}

	if !b.opts.DryRun && !b.opts.ConfirmWrite {
		return nil, errf(400, "non-dry-run build requires confirm-write")
	}

	artifacts := Artifacts{
		ModulesFile: filepath.Join(b.opts.FilesRoot, fmt.Sprintf("%d_modules_v4.json", courseID)),
		BuiltFile:   filepath.Join(b.opts.FilesRoot, fmt.Sprintf("%d_built_v4.json", courseID)),
	}
	if err := plan.WriteFile(artifacts.ModulesFile, req.Course); err != nil {
		return nil, err
	}

	templates, err := b.resolveTemplates(ctx, req)
	if err != nil {
		return nil, err
	}
	b.log.Info("templates resolved", "course_id", courseID)

	result := &Result{
		RunID:     uuid.New().String(),
		Status:    "success",
		CourseURL: courseURL(b.opts.BaseURL, courseID),
		Artifacts: artifacts,
		DryRun:    b.opts.DryRun,
	}

	if b.opts.DryRun {
		result.Message = "Dry run successful, templates loaded."
		return result, nil
	}

	stats := &Stats{}

	if err := b.updateSyllabus(ctx, req, stats); err != nil {
		return nil, err
	}

	switch req.BuildType {
	case 1:
		if err := b.mapExistingAssignments(ctx, req); err != nil {
			return nil, err
		}
	case 2:
		if err := b.upsertAssignments(ctx, req, templates, stats); err != nil {
			return nil, err
		}
		if err := plan.WriteFile(artifacts.ModulesFile, req.Course); err != nil {
			return nil, err
		}
	}

	if err := b.createModules(ctx, req, templates.Page, stats); err != nil {
		return nil, err
	}
	if err := plan.WriteFile(artifacts.BuiltFile, req.Course); err != nil {
		return nil, err
	}

	result.Message = "Course built successfully"
	result.Stats = stats
	b.log.Info("build finished", "run_id", result.RunID, "course_id", courseID,
		"modules", stats.ModulesCreated, "items", stats.ModuleItemsCreated)
	return result, nil
}

// Builder holds one build's collaborators.
type Builder struct {
	api  CourseAPI
	opts Options
	log  *slog.Logger
}

// New creates a Builder. A nil logger falls back to the default.
func New(api CourseAPI, opts Options, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{api: api, opts: opts, log: log}
}

func validate(req *plan.BuildRequest) error {
	if req.CourseID <= 0 {
		return errf(400, "course_id must be a positive integer")
	}
	if req.BuildType != 1 && req.BuildType != 2 {
		return errf(400, "build_type must be 1 (existing assignments) or 2 (full build)")
	}
	return nil
}

func courseURL(baseURL string, courseID int) string {
	if baseURL == "" {
		return fmt.Sprintf("/courses/%d", courseID)
	}
	return fmt.Sprintf("%s/courses/%d", trimSlash(baseURL), courseID)
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// mapExistingAssignments implements build type 1: every published
// assignment with a due date is bucketed by ISO-week offset from the
// earliest one and attached to the module covering that week.
func (b *Builder) mapExistingAssignments(ctx context.Context, req *plan.BuildRequest) error {
	assignments, err := b.api.ListAssignments(ctx, req.CourseID)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	type target struct {
		assessment plan.Assessment
		due        time.Time
	}
	var targets []target
	for _, a := range assignments {
		if a.DueAt == "" || a.WorkflowState != "published" {
			continue
		}
		due, err := time.Parse("2006-01-02T15:04:05Z", a.DueAt)
		if err != nil {
			continue
		}
		// Shift out of UTC so late-evening deadlines stay in the local week.
		due = due.Add(-4 * time.Hour)
		targets = append(targets, target{
			assessment: plan.Assessment{
				ID:    a.ID,
				Name:  a.Name,
				DueAt: due.Format("2006-01-02T15:04:05Z"),
				Link:  fmt.Sprintf("/courses/%d/assignments/%d", req.CourseID, a.ID),
			},
			due: due,
		})
	}
	if len(targets) == 0 {
		return nil
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].due.Before(targets[j].due) })
	_, firstWeek := targets[0].due.ISOWeek()
	for i := range targets {
		_, week := targets[i].due.ISOWeek()
		targets[i].assessment.Week = week - firstWeek
	}

	for _, t := range targets {
		for mi := range req.Course.Modules {
			if t.assessment.Week == req.Course.Modules[mi].Number-1 {
				req.Course.Modules[mi].Assessments = append(req.Course.Modules[mi].Assessments, t.assessment)
			}
		}
	}
	return nil
}
