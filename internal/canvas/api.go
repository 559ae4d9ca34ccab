package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// Course is the subset of a Canvas course the builder works with.
type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code"`
	SyllabusBody  string `json:"syllabus_body"`
	StartAt       string `json:"start_at"`
	EndAt         string `json:"end_at"`
	WorkflowState string `json:"workflow_state"`
}

// Assignment is a Canvas assignment object.
type Assignment struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	DueAt             string   `json:"due_at"`
	PointsPossible    float64  `json:"points_possible"`
	Published         bool     `json:"published"`
	SubmissionTypes   []string `json:"submission_types"`
	AssignmentGroupID int64    `json:"assignment_group_id"`
	IsQuizAssignment  bool     `json:"is_quiz_assignment"`
	QuizID            int64    `json:"quiz_id"`
	WorkflowState     string   `json:"workflow_state"`
	HTMLURL           string   `json:"html_url"`
}

// AssignmentParams is the writable part of an assignment. Pointer fields
// stay off the wire when nil so partial updates touch only what changed.
type AssignmentParams struct {
	Name              string   `json:"name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	DueAt             *string  `json:"due_at,omitempty"`
	PointsPossible    *float64 `json:"points_possible,omitempty"`
	GradingType       string   `json:"grading_type,omitempty"`
	Published         *bool    `json:"published,omitempty"`
	SubmissionTypes   []string `json:"submission_types,omitempty"`
	AssignmentGroupID int64    `json:"assignment_group_id,omitempty"`
}

// DiscussionTopic is a Canvas discussion, optionally graded through its
// shadow assignment.
type DiscussionTopic struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Message      string      `json:"message"`
	Published    bool        `json:"published"`
	AssignmentID int64       `json:"assignment_id"`
	Assignment   *Assignment `json:"assignment,omitempty"`
}

// DiscussionParams creates or updates a discussion topic.
type DiscussionParams struct {
	Title          string            `json:"title,omitempty"`
	Message        *string           `json:"message,omitempty"`
	DiscussionType string            `json:"discussion_type,omitempty"`
	Published      *bool             `json:"published,omitempty"`
	Assignment     *AssignmentParams `json:"assignment,omitempty"`
}

// Quiz is a classic Canvas quiz.
type Quiz struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueAt        string `json:"due_at"`
	Published    bool   `json:"published"`
	QuizType     string `json:"quiz_type"`
	AssignmentID int64  `json:"assignment_id"`
}

// QuizParams creates or updates a classic quiz.
type QuizParams struct {
	Title                  string   `json:"title,omitempty"`
	Description            *string  `json:"description,omitempty"`
	DueAt                  *string  `json:"due_at,omitempty"`
	Published              *bool    `json:"published,omitempty"`
	QuizType               string   `json:"quiz_type,omitempty"`
	AllowedAttempts        *int     `json:"allowed_attempts,omitempty"`
	ShowOneQuestionAtATime *bool    `json:"one_question_at_a_time,omitempty"`
	PointsPossible         *float64 `json:"points_possible,omitempty"`
	AssignmentGroupID      int64    `json:"assignment_group_id,omitempty"`
}

// NewQuiz is a New Quizzes engine quiz. The New Quizzes API serializes
// ids as strings, hence json.Number.
type NewQuiz struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	Instructions string      `json:"instructions"`
	DueAt        string      `json:"due_at"`
	Published    bool        `json:"published"`
	AssignmentID json.Number `json:"assignment_id"`
}

// IntID returns the quiz id as an integer regardless of wire encoding.
func (q NewQuiz) IntID() int64 {
	n, _ := q.ID.Int64()
	return n
}

// NewQuizParams creates or updates a New Quizzes quiz.
type NewQuizParams struct {
	Title             string   `json:"title,omitempty"`
	Instructions      *string  `json:"instructions,omitempty"`
	DueAt             *string  `json:"due_at,omitempty"`
	Published         *bool    `json:"published,omitempty"`
	GradingType       string   `json:"grading_type,omitempty"`
	PointsPossible    *float64 `json:"points_possible,omitempty"`
	AssignmentGroupID int64    `json:"assignment_group_id,omitempty"`
}

// Page is a Canvas wiki page.
type Page struct {
	PageID    int64  `json:"page_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// PageParams creates or updates a wiki page.
type PageParams struct {
	Title          string  `json:"title,omitempty"`
	Body           *string `json:"body,omitempty"`
	EditingRoles   string  `json:"editing_roles,omitempty"`
	Published      *bool   `json:"published,omitempty"`
	FrontPage      *bool   `json:"front_page,omitempty"`
	NotifyOfUpdate *bool   `json:"notify_of_update,omitempty"`
}

// Module is a Canvas course module.
type Module struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Published bool   `json:"published"`
}

// ModuleParams creates a module.
type ModuleParams struct {
	Name     string `json:"name"`
	Position int    `json:"position,omitempty"`
}

// ModuleItem is one entry inside a module.
type ModuleItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Position int    `json:"position"`
}

// ModuleItemParams creates a module item. Type is one of the Canvas item
// types (Assignment, Discussion, Quiz, Page, File, SubHeader).
type ModuleItemParams struct {
	Title     string `json:"title,omitempty"`
	Type      string `json:"type"`
	ContentID int64  `json:"content_id,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	Position  int    `json:"position,omitempty"`
	Indent    int    `json:"indent,omitempty"`
}

// AssignmentGroup is a Canvas assignment group.
type AssignmentGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Submission is one student's submission on an assignment.
type Submission struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Score         float64 `json:"score"`
	Grade         string  `json:"grade"`
	SubmittedAt   string  `json:"submitted_at"`
	WorkflowState string  `json:"workflow_state"`
	Late          bool    `json:"late"`
}

// File is a Canvas file record with its download URL.
type File struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// GetCourse fetches one course, including its syllabus body.
func (c *Client) GetCourse(ctx context.Context, courseID int) (*Course, error) {
	q := url.Values{"include[]": []string{"syllabus_body"}}
	var course Course
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/courses/%d", courseID), q, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourses lists the courses visible to the token's user.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := c.getPaginated(ctx, "/api/v1/courses", nil, appendPage(&out))
	return out, err
}

// UpdateSyllabus replaces the course syllabus body.
func (c *Client) UpdateSyllabus(ctx context.Context, courseID int, body string) error {
	payload := map[string]any{"course": map[string]any{"syllabus_body": body}}
	return c.putJSON(ctx, fmt.Sprintf("/api/v1/courses/%d", courseID), payload, nil)
}

// ListAssignments lists every assignment in the course.
func (c *Client) ListAssignments(ctx context.Context, courseID int) ([]Assignment, error) {
	var out []Assignment
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments", courseID), nil, appendPage(&out))
	return out, err
}

// GetAssignment fetches one assignment.
func (c *Client) GetAssignment(ctx context.Context, courseID int, assignmentID int64) (*Assignment, error) {
	var a Assignment
	err := c.getJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID), nil, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAssignment creates an assignment.
func (c *Client) CreateAssignment(ctx context.Context, courseID int, params AssignmentParams) (*Assignment, error) {
	var a Assignment
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments", courseID),
		map[string]any{"assignment": params}, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EditAssignment updates an assignment in place.
func (c *Client) EditAssignment(ctx context.Context, courseID int, assignmentID int64, params AssignmentParams) (*Assignment, error) {
	var a Assignment
	err := c.putJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments/%d", courseID, assignmentID),
		map[string]any{"assignment": params}, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListDiscussions lists the course's discussion topics.
func (c *Client) ListDiscussions(ctx context.Context, courseID int) ([]DiscussionTopic, error) {
	var out []DiscussionTopic
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/discussion_topics", courseID), nil, appendPage(&out))
	return out, err
}

// CreateDiscussion creates a discussion topic.
func (c *Client) CreateDiscussion(ctx context.Context, courseID int, params DiscussionParams) (*DiscussionTopic, error) {
	var d DiscussionTopic
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/discussion_topics", courseID), params, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// EditDiscussion updates a discussion topic.
func (c *Client) EditDiscussion(ctx context.Context, courseID int, topicID int64, params DiscussionParams) (*DiscussionTopic, error) {
	var d DiscussionTopic
	err := c.putJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/discussion_topics/%d", courseID, topicID), params, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListQuizzes lists the course's classic quizzes.
func (c *Client) ListQuizzes(ctx context.Context, courseID int) ([]Quiz, error) {
	var out []Quiz
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/quizzes", courseID), nil, appendPage(&out))
	return out, err
}

// CreateQuiz creates a classic quiz.
func (c *Client) CreateQuiz(ctx context.Context, courseID int, params QuizParams) (*Quiz, error) {
	var q Quiz
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/quizzes", courseID),
		map[string]any{"quiz": params}, &q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// EditQuiz updates a classic quiz.
func (c *Client) EditQuiz(ctx context.Context, courseID int, quizID int64, params QuizParams) (*Quiz, error) {
	var q Quiz
	err := c.putJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/quizzes/%d", courseID, quizID),
		map[string]any{"quiz": params}, &q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListNewQuizzes lists the course's New Quizzes engine quizzes. Note the
// distinct /api/quiz/v1 prefix.
func (c *Client) ListNewQuizzes(ctx context.Context, courseID int) ([]NewQuiz, error) {
	var out []NewQuiz
	err := c.getPaginated(ctx, fmt.Sprintf("/api/quiz/v1/courses/%d/quizzes", courseID), nil, appendPage(&out))
	return out, err
}

// CreateNewQuiz creates a New Quizzes quiz.
func (c *Client) CreateNewQuiz(ctx context.Context, courseID int, params NewQuizParams) (*NewQuiz, error) {
	var q NewQuiz
	err := c.postJSON(ctx, fmt.Sprintf("/api/quiz/v1/courses/%d/quizzes", courseID),
		map[string]any{"quiz": params}, &q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// EditNewQuiz updates a New Quizzes quiz.
func (c *Client) EditNewQuiz(ctx context.Context, courseID int, quizID int64, params NewQuizParams) (*NewQuiz, error) {
	var q NewQuiz
	err := c.putJSON(ctx, fmt.Sprintf("/api/quiz/v1/courses/%d/quizzes/%d", courseID, quizID),
		map[string]any{"quiz": params}, &q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListPages lists the course's wiki pages.
func (c *Client) ListPages(ctx context.Context, courseID int) ([]Page, error) {
	var out []Page
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/pages", courseID), nil, appendPage(&out))
	return out, err
}

// CreatePage creates a wiki page.
func (c *Client) CreatePage(ctx context.Context, courseID int, params PageParams) (*Page, error) {
	var p Page
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/pages", courseID),
		map[string]any{"wiki_page": params}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPage fetches one wiki page, including its body, by URL slug.
func (c *Client) GetPage(ctx context.Context, courseID int, pageURL string) (*Page, error) {
	var p Page
	err := c.getJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/pages/%s", courseID, url.PathEscape(pageURL)), nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EditPage updates a wiki page identified by its URL slug.
func (c *Client) EditPage(ctx context.Context, courseID int, pageURL string, params PageParams) (*Page, error) {
	var p Page
	err := c.putJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/pages/%s", courseID, url.PathEscape(pageURL)),
		map[string]any{"wiki_page": params}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListModules lists the course's modules.
func (c *Client) ListModules(ctx context.Context, courseID int) ([]Module, error) {
	var out []Module
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/modules", courseID), nil, appendPage(&out))
	return out, err
}

// CreateModule creates a module.
func (c *Client) CreateModule(ctx context.Context, courseID int, params ModuleParams) (*Module, error) {
	var m Module
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/modules", courseID),
		map[string]any{"module": params}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateModuleItem appends an item to a module.
func (c *Client) CreateModuleItem(ctx context.Context, courseID int, moduleID int64, params ModuleItemParams) (*ModuleItem, error) {
	var item ModuleItem
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/modules/%d/items", courseID, moduleID),
		map[string]any{"module_item": params}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListAssignmentGroups lists the course's assignment groups.
func (c *Client) ListAssignmentGroups(ctx context.Context, courseID int) ([]AssignmentGroup, error) {
	var out []AssignmentGroup
	err := c.getPaginated(ctx, fmt.Sprintf("/api/v1/courses/%d/assignment_groups", courseID), nil, appendPage(&out))
	return out, err
}

// CreateAssignmentGroup creates an assignment group.
func (c *Client) CreateAssignmentGroup(ctx context.Context, courseID int, name string, position int) (*AssignmentGroup, error) {
	payload := map[string]any{"name": name, "position": position}
	var g AssignmentGroup
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/assignment_groups", courseID), payload, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListSubmissions lists submissions for one assignment.
func (c *Client) ListSubmissions(ctx context.Context, courseID int, assignmentID int64) ([]Submission, error) {
	var out []Submission
	err := c.getPaginated(ctx,
		fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions", courseID, assignmentID), nil, appendPage(&out))
	return out, err
}

// PostGrade posts a grade for one student's submission.
func (c *Client) PostGrade(ctx context.Context, courseID int, assignmentID, userID int64, grade string) (*Submission, error) {
	payload := map[string]any{"submission": map[string]any{"posted_grade": grade}}
	var s Submission
	err := c.putJSON(ctx,
		fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions/%d", courseID, assignmentID, userID),
		payload, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetFile fetches one file record.
func (c *Client) GetFile(ctx context.Context, courseID int, fileID int64) (*File, error) {
	var f File
	err := c.getJSON(ctx, fmt.Sprintf("/api/v1/courses/%d/files/%d", courseID, fileID), nil, &f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile streams a file's content to destPath. The download URL
// comes pre-signed from GetFile, so no auth header is attached.
func (c *Client) DownloadFile(ctx context.Context, file *File, destPath string) error {
	if file.URL == "" {
		return fmt.Errorf("file %d has no download url", file.ID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download file %d: %w", file.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &apiError{Status: resp.StatusCode, Method: http.MethodGet, Path: file.URL, Body: resp.Status}
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dest.Close()
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// appendPage decodes one pagination page into the accumulating slice.
func appendPage[T any](acc *[]T) func(json.RawMessage) error {
	return func(page json.RawMessage) error {
		var batch []T
		if err := json.Unmarshal(page, &batch); err != nil {
			return fmt.Errorf("decode page: %w", err)
		}
		*acc = append(*acc, batch...)
		return nil
	}
}
