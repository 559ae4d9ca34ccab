// Package plan defines the canonical buildRequest records produced by the
// alignment-grid parsers and consumed by the course builder.
//
// Every "unknown" field is an explicit empty value (empty string, empty
// slice), never an omitted key: the schema validator and the builder both
// rely on key presence.
package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Assignment type values as they appear on the wire.
const (
	TypeAssignment  = "assignment"
	TypeDiscussion  = "discussion"
	TypeQuiz        = "quiz"
	TypeClassicQuiz = "classic quiz"
)

// BuildRequest is the top-level envelope: build-time options plus the
// extracted course. CourseID -1 means "unset".
type BuildRequest struct {
	CourseID                int    `json:"course_id"`
	StartDate               string `json:"start_date"`
	EndDate                 string `json:"end_date"`
	DefaultDueDay           int    `json:"default_due_day"`
	DefaultDiscussionDueDay int    `json:"default_discussion_due_day"`
	DefaultLastDay          int    `json:"default_last_day"`
	BuildType               int    `json:"build_type"`
	OverviewPageTemplate    string `json:"overview_page_template"`
	DiscussionTemplate      string `json:"discussion_template"`
	AssignmentTemplate      string `json:"assignment_template"`
	NewQuizTemplate         string `json:"newquiz_template"`
	ClassicQuizTemplate     string `json:"classicquiz_template"`
	Course                  Course `json:"course"`
}

// Course holds the extracted course metadata and module sequence.
type Course struct {
	CourseCode   string       `json:"course_code"`
	CourseName   string       `json:"course_name"`
	Description  string       `json:"description"`
	Instructor   []Instructor `json:"instructor"`
	Year         int          `json:"year"`
	Term         string       `json:"term"`
	StartAt      string       `json:"start_at"`
	EndAt        string       `json:"end_at"`
	Credits      int          `json:"credits"`
	Objectives   []string     `json:"objectives"`
	Textbooks    []string     `json:"textbooks"`
	CoursePolicy string       `json:"course_policy"`
	Modules      []Module     `json:"modules"`
}

// Instructor is a course instructor entry.
type Instructor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Module is one alignment-grid row in canonical form. ID and Number run
// 1..N in document order; Position starts at 4 because the target course
// carries three fixed front-matter modules.
type Module struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	Number         int          `json:"number"`
	Position       int          `json:"position"`
	Overview       string       `json:"overview"`
	Objectives     []string     `json:"objectives"`
	Assessments    []Assessment `json:"assessments"`
	Assignments    []Assignment `json:"assignments"`
	Content        []string     `json:"content"`
	Pages          []Page       `json:"pages"`
	Files          []File       `json:"files"`
	OverviewPageID int          `json:"overview_page_id,omitempty"`
}

// Assignment is one deliverable extracted from an assessment cell.
// ID is either an explicit identifier preserved verbatim from the source,
// a synthesized token (d1, q2, a3), or a live Canvas id after
// reconciliation.
type Assignment struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`

	// Build-side annotations; absent from the canonical plan.
	Week    int    `json:"week,omitempty"`
	Link    string `json:"link,omitempty"`
	GroupID int64  `json:"group_id,omitempty"`

	// New marks a record the reconciler could not match against the live
	// course. In-memory only.
	New bool `json:"-"`
}

// Assessment is a build-output record linking a module to a live
// assignment, either mapped by week (build type 1) or upserted (type 2).
type Assessment struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Link  string `json:"link"`
	DueAt string `json:"due_at"`
	Week  int    `json:"week"`
}

// Page is a new-page reference from a content cell. The builder replaces
// the synthesized p# id with the created wiki page id.
type Page struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// File is a file reference from a content cell. The id is the literal
// Canvas file id carried by the file:<id> token.
type File struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ID is an identifier token that is a string in memory but may appear as
// either a JSON string or a JSON number on the wire. Numeric tokens are
// written back as numbers so the output matches hand-written payloads.
type ID string

// UnmarshalJSON accepts both "d1" and 9001.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	return fmt.Errorf("id must be a string or number: %s", string(data))
}

// MarshalJSON writes purely numeric ids as JSON numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the id is a plain integer token.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// Int64 returns the numeric value of the id, or 0 when non-numeric.
func (id ID) Int64() int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Counters threads the per-prefix id sequences and the page sequence
// through one normalization pass, keeping the parser reentrant.
type Counters struct {
	Quiz       int
	Discussion int
	Assignment int
	Page       int
}

// NextAssignmentID synthesizes the next id for the given assignment type.
// Quizzes and classic quizzes share the q sequence.
func (c *Counters) NextAssignmentID(assignmentType string) ID {
	switch assignmentType {
	case TypeQuiz, TypeClassicQuiz:
		c.Quiz++
		return ID("q" + strconv.Itoa(c.Quiz))
	case TypeDiscussion:
		c.Discussion++
		return ID("d" + strconv.Itoa(c.Discussion))
	default:
		c.Assignment++
		return ID("a" + strconv.Itoa(c.Assignment))
	}
}

// NextPageID synthesizes the next p# page id.
func (c *Counters) NextPageID() ID {
	c.Page++
	return ID("p" + strconv.Itoa(c.Page))
}

// EnsureShape replaces nil slices with empty ones so that serialization
// always emits every key.
func (c *Course) EnsureShape() {
	if c.Instructor == nil {
		c.Instructor = []Instructor{}
	}
	if c.Objectives == nil {
		c.Objectives = []string{}
	}
	if c.Textbooks == nil {
		c.Textbooks = []string{}
	}
	if c.Modules == nil {
		c.Modules = []Module{}
	}
	for i := range c.Modules {
		c.Modules[i].EnsureShape()
	}
}

// EnsureShape replaces nil slices with empty ones.
func (m *Module) EnsureShape() {
	if m.Objectives == nil {
		m.Objectives = []string{}
	}
	if m.Assessments == nil {
		m.Assessments = []Assessment{}
	}
	if m.Assignments == nil {
		m.Assignments = []Assignment{}
	}
	if m.Content == nil {
		m.Content = []string{}
	}
	if m.Pages == nil {
		m.Pages = []Page{}
	}
	if m.Files == nil {
		m.Files = []File{}
	}
}
