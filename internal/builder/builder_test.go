package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtools/cagforge/internal/canvas"
	"github.com/edtools/cagforge/internal/plan"
)

// fakeAPI is an in-memory Canvas standing in for the real client. Create
// calls hand out sequential ids; edits fill stored objects in place.
type fakeAPI struct {
	course      canvas.Course
	pages       []canvas.Page
	assignments []canvas.Assignment
	discussions []canvas.DiscussionTopic
	quizzes     []canvas.Quiz
	newQuizzes  []canvas.NewQuiz
	groups      []canvas.AssignmentGroup

	lastID int64

	syllabus        string
	syllabusUpdates int
	createdModules  []canvas.ModuleParams
	createdItems    []canvas.ModuleItemParams
}

var _ CourseAPI = (*fakeAPI)(nil)

func (f *fakeAPI) nextID() int64 {
	f.lastID++
	return f.lastID
}

func (f *fakeAPI) GetCourse(context.Context, int) (*canvas.Course, error) {
	course := f.course
	return &course, nil
}

func (f *fakeAPI) UpdateSyllabus(_ context.Context, _ int, body string) error {
	f.syllabus = body
	f.syllabusUpdates++
	return nil
}

func (f *fakeAPI) ListAssignments(context.Context, int) ([]canvas.Assignment, error) {
	return f.assignments, nil
}

func (f *fakeAPI) GetAssignment(_ context.Context, _ int, id int64) (*canvas.Assignment, error) {
	for i := range f.assignments {
		if f.assignments[i].ID == id {
			a := f.assignments[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("assignment %d not found", id)
}

func (f *fakeAPI) CreateAssignment(_ context.Context, _ int, p canvas.AssignmentParams) (*canvas.Assignment, error) {
	a := canvas.Assignment{
		ID:                f.nextID(),
		Name:              p.Name,
		SubmissionTypes:   p.SubmissionTypes,
		AssignmentGroupID: p.AssignmentGroupID,
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.DueAt != nil {
		a.DueAt = *p.DueAt
	}
	if p.Published != nil {
		a.Published = *p.Published
	}
	f.assignments = append(f.assignments, a)
	return &a, nil
}

func (f *fakeAPI) EditAssignment(_ context.Context, _ int, id int64, p canvas.AssignmentParams) (*canvas.Assignment, error) {
	for i := range f.assignments {
		a := &f.assignments[i]
		if a.ID != id {
			continue
		}
		if p.Description != nil {
			a.Description = *p.Description
		}
		if p.DueAt != nil {
			a.DueAt = *p.DueAt
		}
		if len(p.SubmissionTypes) > 0 {
			a.SubmissionTypes = p.SubmissionTypes
		}
		if p.AssignmentGroupID != 0 {
			a.AssignmentGroupID = p.AssignmentGroupID
		}
		out := *a
		return &out, nil
	}
	return nil, fmt.Errorf("assignment %d not found", id)
}

func (f *fakeAPI) ListDiscussions(context.Context, int) ([]canvas.DiscussionTopic, error) {
	return f.discussions, nil
}

func (f *fakeAPI) CreateDiscussion(ctx context.Context, courseID int, p canvas.DiscussionParams) (*canvas.DiscussionTopic, error) {
	d := canvas.DiscussionTopic{ID: f.nextID(), Title: p.Title}
	if p.Message != nil {
		d.Message = *p.Message
	}
	if p.Assignment != nil {
		shadow, err := f.CreateAssignment(ctx, courseID, *p.Assignment)
		if err != nil {
			return nil, err
		}
		d.AssignmentID = shadow.ID
	}
	f.discussions = append(f.discussions, d)
	return &d, nil
}

func (f *fakeAPI) EditDiscussion(_ context.Context, _ int, id int64, p canvas.DiscussionParams) (*canvas.DiscussionTopic, error) {
	for i := range f.discussions {
		d := &f.discussions[i]
		if d.ID != id {
			continue
		}
		if p.Message != nil {
			d.Message = *p.Message
		}
		out := *d
		return &out, nil
	}
	return nil, fmt.Errorf("discussion %d not found", id)
}

func (f *fakeAPI) ListQuizzes(context.Context, int) ([]canvas.Quiz, error) {
	return f.quizzes, nil
}

func (f *fakeAPI) CreateQuiz(ctx context.Context, courseID int, p canvas.QuizParams) (*canvas.Quiz, error) {
	q := canvas.Quiz{ID: f.nextID(), Title: p.Title, QuizType: p.QuizType}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.DueAt != nil {
		q.DueAt = *p.DueAt
	}
	shadow, err := f.CreateAssignment(ctx, courseID, canvas.AssignmentParams{
		Name: p.Title, DueAt: p.DueAt, AssignmentGroupID: p.AssignmentGroupID,
	})
	if err != nil {
		return nil, err
	}
	q.AssignmentID = shadow.ID
	f.quizzes = append(f.quizzes, q)
	return &q, nil
}

func (f *fakeAPI) EditQuiz(_ context.Context, _ int, id int64, p canvas.QuizParams) (*canvas.Quiz, error) {
	for i := range f.quizzes {
		q := &f.quizzes[i]
		if q.ID != id {
			continue
		}
		if p.Description != nil {
			q.Description = *p.Description
		}
		if p.DueAt != nil {
			q.DueAt = *p.DueAt
		}
		out := *q
		return &out, nil
	}
	return nil, fmt.Errorf("quiz %d not found", id)
}

func (f *fakeAPI) ListNewQuizzes(context.Context, int) ([]canvas.NewQuiz, error) {
	return f.newQuizzes, nil
}

func (f *fakeAPI) CreateNewQuiz(ctx context.Context, courseID int, p canvas.NewQuizParams) (*canvas.NewQuiz, error) {
	q := canvas.NewQuiz{ID: jsonNumber(f.nextID()), Title: p.Title}
	if p.Instructions != nil {
		q.Instructions = *p.Instructions
	}
	if p.DueAt != nil {
		q.DueAt = *p.DueAt
	}
	shadow, err := f.CreateAssignment(ctx, courseID, canvas.AssignmentParams{
		Name: p.Title, DueAt: p.DueAt, AssignmentGroupID: p.AssignmentGroupID,
	})
	if err != nil {
		return nil, err
	}
	q.AssignmentID = jsonNumber(shadow.ID)
	f.newQuizzes = append(f.newQuizzes, q)
	return &q, nil
}

func (f *fakeAPI) EditNewQuiz(_ context.Context, _ int, id int64, p canvas.NewQuizParams) (*canvas.NewQuiz, error) {
	for i := range f.newQuizzes {
		q := &f.newQuizzes[i]
		if q.IntID() != id {
			continue
		}
		if p.Instructions != nil {
			q.Instructions = *p.Instructions
		}
		if p.DueAt != nil {
			q.DueAt = *p.DueAt
		}
		out := *q
		return &out, nil
	}
	return nil, fmt.Errorf("new quiz %d not found", id)
}

func (f *fakeAPI) ListPages(context.Context, int) ([]canvas.Page, error) {
	// Canvas page listings omit bodies.
	out := make([]canvas.Page, len(f.pages))
	for i, p := range f.pages {
		p.Body = ""
		out[i] = p
	}
	return out, nil
}

func (f *fakeAPI) GetPage(_ context.Context, _ int, pageURL string) (*canvas.Page, error) {
	for i := range f.pages {
		if f.pages[i].URL == pageURL {
			p := f.pages[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("page %q not found", pageURL)
}

func (f *fakeAPI) CreatePage(_ context.Context, _ int, p canvas.PageParams) (*canvas.Page, error) {
	page := canvas.Page{PageID: f.nextID(), Title: p.Title, URL: slugify(p.Title)}
	if p.Body != nil {
		page.Body = *p.Body
	}
	if p.Published != nil {
		page.Published = *p.Published
	}
	f.pages = append(f.pages, page)
	return &page, nil
}

func (f *fakeAPI) CreateModule(_ context.Context, _ int, p canvas.ModuleParams) (*canvas.Module, error) {
	f.createdModules = append(f.createdModules, p)
	return &canvas.Module{ID: f.nextID(), Name: p.Name, Position: p.Position}, nil
}

func (f *fakeAPI) CreateModuleItem(_ context.Context, _ int, _ int64, p canvas.ModuleItemParams) (*canvas.ModuleItem, error) {
	f.createdItems = append(f.createdItems, p)
	return &canvas.ModuleItem{ID: f.nextID(), Title: p.Title, Type: p.Type, Position: p.Position}, nil
}

func (f *fakeAPI) ListAssignmentGroups(context.Context, int) ([]canvas.AssignmentGroup, error) {
	return f.groups, nil
}

func (f *fakeAPI) CreateAssignmentGroup(_ context.Context, _ int, name string, _ int) (*canvas.AssignmentGroup, error) {
	g := canvas.AssignmentGroup{ID: f.nextID(), Name: name}
	f.groups = append(f.groups, g)
	return &g, nil
}

func jsonNumber(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}

func slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

const (
	templatePageBody = `<h2><strong>Module Overview</strong></h2><p>intro text</p><hr><h2><strong>Content</strong></h2>
<p>content here</p><hr><h2><strong>Assessments</strong></h2>
<p>assessments here</p>`

	templateAssignmentBody = `<h2><strong>Overview</strong></h2><p>about the task</p><hr><h2><strong>Guidelines</strong></h2><p>rules</p><hr><p>Please see the sample below.</p>`

	templateDiscussionBody = `<h2><strong>Prompt</strong></h2><p>discuss this</p><hr><h2><strong>Guidelines</strong></h2><p>rules</p><hr>`

	templateNewQuizBody = `<p>Answer every question.</p><h2><strong>Guidelines</strong></h2><p>rules</p>`

	templateClassicQuizBody = `<h2><strong>Guidelines</strong></h2><p>rules</p><hr><p>Please see the sample below.</p>`

	syllabusBody = `<h3>Instructor Information</h3>
<li>placeholder</li>
<p><span style="color: #e03e2d;">[Course Code]</span>: [Course Name], [Term] [Year]</p>
<h3>Course Learning Outcomes</h3><li>old</li>
<p>Credits: [#]. Runs [StartDate] to [EndDate].</p>
<h3>Required Textbooks</h3>
<li>old</li>
<p>[Course Description]</p>
<p>[Course Policies]</p>`
)

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{lastID: 1000}
	f.course = canvas.Course{ID: 43110, Name: "Strategic Management", SyllabusBody: syllabusBody}
	f.pages = []canvas.Page{{
		PageID: f.nextID(), Title: "Module 1: Overview",
		URL: "module-1-overview", Body: templatePageBody,
	}}
	f.assignments = []canvas.Assignment{{
		ID: f.nextID(), Name: "Individual Assignment: [Title Here]",
		Description: templateAssignmentBody,
	}}
	f.discussions = []canvas.DiscussionTopic{{
		ID: f.nextID(), Title: "Group Discussion: [Title Here]",
		Message: templateDiscussionBody,
	}}
	f.newQuizzes = []canvas.NewQuiz{{
		ID: jsonNumber(f.nextID()), Title: "New Quiz: [Title Here]",
		Instructions: templateNewQuizBody,
	}}
	f.quizzes = []canvas.Quiz{{
		ID: f.nextID(), Title: "Classic Quiz: [Title Here]",
		Description: templateClassicQuizBody,
	}}
	return f
}

func newRequest(buildType int, modules ...plan.Module) *plan.BuildRequest {
	req := &plan.BuildRequest{
		CourseID:                43110,
		StartDate:               "2025-08-26 00:00:00",
		EndDate:                 "2025-12-15 23:59:59",
		DefaultDueDay:           6,
		DefaultDiscussionDueDay: 3,
		DefaultLastDay:          4,
		BuildType:               buildType,
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
			Modules:      modules,
		},
	}
	req.Course.EnsureShape()
	return req
}

func TestValidate(t *testing.T) {
	b := New(newFakeAPI(), Options{DryRun: true}, nil)

	req := newRequest(2)
	req.CourseID = 0
	_, err := b.Run(context.Background(), req)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 400, berr.Code)
	assert.Contains(t, berr.Message, "course_id")

	req = newRequest(3)
	_, err = b.Run(context.Background(), req)
	require.ErrorAs(t, err, &berr)
	assert.Contains(t, berr.Message, "build_type")
}

func TestRun_RefusesWriteWithoutConfirm(t *testing.T) {
	b := New(newFakeAPI(), Options{FilesRoot: t.TempDir()}, nil)

	_, err := b.Run(context.Background(), newRequest(2))
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 400, berr.Code)
	assert.Contains(t, berr.Message, "confirm-write")
}

func TestRun_DryRun(t *testing.T) {
	api := newFakeAPI()
	dir := t.TempDir()
	b := New(api, Options{FilesRoot: dir, BaseURL: "https://canvas.example.edu/", DryRun: true}, nil)

	module := plan.Module{
		ID: 1, Name: "Module 1", Number: 1, Position: 4,
		Assignments: []plan.Assignment{{ID: "d1", Name: "Week 1 Discussion", Type: plan.TypeDiscussion}},
	}
	result, err := b.Run(context.Background(), newRequest(2, module))
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "Dry run successful, templates loaded.", result.Message)
	assert.True(t, result.DryRun)
	assert.Nil(t, result.Stats)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "https://canvas.example.edu/courses/43110", result.CourseURL)

	// The modules artifact is written even on dry run; nothing else is.
	_, err = os.Stat(filepath.Join(dir, "43110_modules_v4.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "43110_built_v4.json"))
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, api.syllabusUpdates)
	assert.Empty(t, api.createdModules)
}

func TestRun_FullBuildCreatesEverything(t *testing.T) {
	api := newFakeAPI()
	dir := t.TempDir()
	b := New(api, Options{FilesRoot: dir, ConfirmWrite: true}, nil)

	module := plan.Module{
		ID: 1, Name: "Module 1", Number: 1, Position: 4,
		Overview:   "Intro week",
		Objectives: []string{"Explain X"},
		Assignments: []plan.Assignment{
			{ID: "a1", Name: "Case Study", Type: plan.TypeAssignment},
			{ID: "d1", Name: "Week 1 Discussion", Type: plan.TypeDiscussion},
			{ID: "q1", Name: "Quiz 1", Type: plan.TypeQuiz},
			{ID: "q2", Name: "Quiz 2", Type: plan.TypeClassicQuiz},
		},
		Content: []string{"Read chapter 1"},
	}
	req := newRequest(2, module)

	result, err := b.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Course built successfully", result.Message)

	stats := result.Stats
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.AssignmentsCreated)
	assert.Equal(t, 1, stats.DiscussionsCreated)
	assert.Equal(t, 1, stats.NewQuizzesCreated)
	assert.Equal(t, 1, stats.ClassicQuizzesCreated)
	assert.Equal(t, 1, stats.ModulesCreated)
	assert.Equal(t, 1, stats.PagesCreated)
	// Two subheaders, the overview page item, four assessment items.
	assert.Equal(t, 7, stats.ModuleItemsCreated)
	assert.True(t, stats.SyllabusUpdated)

	built := req.Course.Modules[0]
	require.Len(t, built.Assessments, 4)
	for i, assessment := range built.Assessments {
		assert.NotZero(t, assessment.ID)
		assert.Equal(t, fmt.Sprintf("/courses/43110/assignments/%d", assessment.ID), assessment.Link)
		assert.Equal(t, 0, assessment.Week)

		record := built.Assignments[i]
		assert.Equal(t, plan.ID(strconv.FormatInt(assessment.ID, 10)), record.ID)
		assert.Equal(t, assessment.Link, record.Link)
		assert.NotZero(t, record.GroupID)
	}

	// The last (and only) module takes the default_last_day due date,
	// discussions the discussion day; both in week zero.
	caseStudy, err := api.GetAssignment(context.Background(), 43110, built.Assessments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-30T03:59:00Z", caseStudy.DueAt)
	assert.Contains(t, caseStudy.Description, "[overview]")
	discussion, err := api.GetAssignment(context.Background(), 43110, built.Assessments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-29T03:59:00Z", discussion.DueAt)

	// The "New Assignments" group was created on demand.
	require.Len(t, api.groups, 1)
	assert.Equal(t, "New Assignments", api.groups[0].Name)

	// Syllabus placeholders were filled and the red marker styling
	// stripped once nothing was left unfilled.
	assert.Equal(t, 1, api.syllabusUpdates)
	assert.Contains(t, api.syllabus, "BUS301")
	assert.Contains(t, api.syllabus, "mailto:dana@example.edu")
	assert.Contains(t, api.syllabus, "<li>Explain X</li>")
	assert.NotContains(t, api.syllabus, "#e03e2d")
	assert.NotContains(t, api.syllabus, "[Course Code]")

	require.Len(t, api.createdModules, 1)
	assert.Equal(t, canvas.ModuleParams{Name: "Module 1", Position: 4}, api.createdModules[0])

	var subheaders, assessmentItems []canvas.ModuleItemParams
	for _, item := range api.createdItems {
		switch item.Type {
		case "SubHeader":
			subheaders = append(subheaders, item)
		case "Assignment":
			assessmentItems = append(assessmentItems, item)
		}
	}
	require.Len(t, subheaders, 2)
	assert.Equal(t, "Discover", subheaders[0].Title)
	assert.Equal(t, "Demonstrate", subheaders[1].Title)
	require.Len(t, assessmentItems, 4)
	for _, item := range assessmentItems {
		assert.Equal(t, 1, item.Indent)
	}

	for _, name := range []string{"43110_modules_v4.json", "43110_built_v4.json"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"assessments"`)
	}
}

func TestRun_UpdateFillsOnlyEmptyFields(t *testing.T) {
	api := newFakeAPI()
	existing := canvas.Assignment{
		ID:   5001,
		Name: "Existing Essay",
		// Description and due date are empty; the build fills them.
		SubmissionTypes: []string{"online_text_entry"},
	}
	api.assignments = append(api.assignments, existing)

	b := New(api, Options{FilesRoot: t.TempDir(), ConfirmWrite: true}, nil)
	module := plan.Module{
		ID: 1, Name: "Module 1", Number: 1, Position: 4,
		Assignments: []plan.Assignment{{ID: "5001", Name: "Existing Essay", Type: plan.TypeAssignment}},
	}
	req := newRequest(2, module)

	result, err := b.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.AssignmentsCreated)
	assert.Equal(t, 1, result.Stats.AssignmentsUpdated)

	fresh, err := api.GetAssignment(context.Background(), 43110, 5001)
	require.NoError(t, err)
	assert.Contains(t, fresh.Description, "[overview]")
	assert.NotEmpty(t, fresh.DueAt)
	// The instructor's submission-type choice survives the build.
	assert.Equal(t, []string{"online_text_entry"}, fresh.SubmissionTypes)

	require.Len(t, req.Course.Modules[0].Assessments, 1)
	assert.Equal(t, "Existing Essay", req.Course.Modules[0].Assessments[0].Name)
}

func TestRun_BuildType1MapsExistingByWeek(t *testing.T) {
	api := newFakeAPI()
	api.assignments = append(api.assignments,
		canvas.Assignment{ID: 7001, Name: "Week 1 Essay", DueAt: "2025-09-07T03:59:00Z", WorkflowState: "published"},
		canvas.Assignment{ID: 7002, Name: "Week 2 Essay", DueAt: "2025-09-14T03:59:00Z", WorkflowState: "published"},
		canvas.Assignment{ID: 7003, Name: "Draft", DueAt: "2025-09-14T03:59:00Z", WorkflowState: "unpublished"},
		canvas.Assignment{ID: 7004, Name: "No due date", WorkflowState: "published"},
	)

	b := New(api, Options{FilesRoot: t.TempDir(), ConfirmWrite: true}, nil)
	req := newRequest(1,
		plan.Module{ID: 1, Name: "Module 1", Number: 1, Position: 4},
		plan.Module{ID: 2, Name: "Module 2", Number: 2, Position: 5},
	)

	_, err := b.Run(context.Background(), req)
	require.NoError(t, err)

	first := req.Course.Modules[0].Assessments
	require.Len(t, first, 1)
	assert.Equal(t, int64(7001), first[0].ID)
	assert.Equal(t, "/courses/43110/assignments/7001", first[0].Link)
	assert.Equal(t, 0, first[0].Week)

	second := req.Course.Modules[1].Assessments
	require.Len(t, second, 1)
	assert.Equal(t, int64(7002), second[0].ID)
	assert.Equal(t, 1, second[0].Week)
}

func TestResolveTemplates(t *testing.T) {
	api := newFakeAPI()
	b := New(api, Options{}, nil)

	templates, err := b.resolveTemplates(context.Background(), newRequest(2))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(templates.Page, "[overview]"))
	assert.Contains(t, templates.Page, "[objectives]")
	assert.Contains(t, templates.Page, "[content]")
	assert.Contains(t, templates.Page, "[assessments]")

	assert.Contains(t, templates.Assignment, "[overview]")
	assert.Contains(t, templates.Assignment, "[guidelines]")
	assert.NotContains(t, templates.Assignment, "sample below")

	assert.Contains(t, templates.Discussion, "[prompt]")
	assert.Contains(t, templates.NewQuiz, "[guidelines]")
	assert.NotContains(t, templates.ClassicQuiz, "sample below")
}

func TestResolveTemplates_MissingTemplateIs404(t *testing.T) {
	api := newFakeAPI()
	api.pages = nil
	b := New(api, Options{}, nil)

	_, err := b.resolveTemplates(context.Background(), newRequest(2))
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 404, berr.Code)
	assert.Contains(t, berr.Message, "create the page first")
}

func TestCourseURL(t *testing.T) {
	assert.Equal(t, "/courses/7", courseURL("", 7))
	assert.Equal(t, "https://canvas.example.edu/courses/7", courseURL("https://canvas.example.edu/", 7))
}
