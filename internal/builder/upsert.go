package builder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/canvas"
	"github.com/edtools/cagforge/internal/plan"
)

const assignmentGroupName = "New Assignments"

func ptr[T any](v T) *T { return &v }

// upsertAssignments implements build type 2: every assignment record in
// every module is created in Canvas, or updated in place when its id
// already points at a live object. Updates only fill fields that are
// empty on the live object; instructor edits are never overwritten.
func (b *Builder) upsertAssignments(ctx context.Context, req *plan.BuildRequest, templates *Templates, stats *Stats) error {
	courseID := req.CourseID

	assignments, err := b.api.ListAssignments(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}
	discussions, err := b.api.ListDiscussions(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list discussions: %w", err)
	}
	newQuizzes, err := b.api.ListNewQuizzes(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list new quizzes: %w", err)
	}
	classicQuizzes, err := b.api.ListQuizzes(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list quizzes: %w", err)
	}

	group, err := b.ensureAssignmentGroup(ctx, courseID)
	if err != nil {
		return err
	}

	state := &upsertState{
		assignments:    assignments,
		discussions:    discussions,
		newQuizzes:     newQuizzes,
		classicQuizzes: classicQuizzes,
		group:          group,
	}

	moduleCount := len(req.Course.Modules)
	for mi := range req.Course.Modules {
		module := &req.Course.Modules[mi]
		week := module.Number - 1

		dueDay := req.DefaultDueDay
		if module.Number == moduleCount {
			dueDay = req.DefaultLastDay
		}
		moduleDue, err := moduleDueDate(req.StartDate, week, dueDay)
		if err != nil {
			return err
		}
		discussionDue, err := moduleDueDate(req.StartDate, week, req.DefaultDiscussionDueDay)
		if err != nil {
			return err
		}

		for ai := range module.Assignments {
			record := &module.Assignments[ai]
			name := strings.TrimSpace(record.Name)
			if name == "" {
				return errf(400, "module %d has an assignment with an empty name", module.Number)
			}

			var live liveRef
			switch strings.ToLower(strings.TrimSpace(record.Type)) {
			case plan.TypeAssignment:
				live, err = b.upsertRegular(ctx, courseID, record, name, templates.Assignment, moduleDue, state, stats)
			case plan.TypeDiscussion:
				live, err = b.upsertDiscussion(ctx, courseID, record, name, templates.Discussion, discussionDue, state, stats)
			case plan.TypeQuiz:
				live, err = b.upsertNewQuiz(ctx, courseID, record, name, templates.NewQuiz, moduleDue, state, stats)
			case plan.TypeClassicQuiz:
				live, err = b.upsertClassicQuiz(ctx, courseID, record, name, templates.ClassicQuiz, moduleDue, state, stats)
			default:
				return errf(400, "unsupported assignment type %q in module %d", record.Type, module.Number)
			}
			if err != nil {
				return err
			}
			if live.id == 0 {
				return errf(500, "failed to upsert assignment %q for module %d", name, module.Number)
			}

			link := fmt.Sprintf("/courses/%d/assignments/%d", courseID, live.id)
			module.Assessments = append(module.Assessments, plan.Assessment{
				ID:   live.id,
				Name: live.name,
				Type: record.Type,
				Link: link,
				Week: week,
			})
			record.ID = plan.ID(strconv.FormatInt(live.id, 10))
			record.Week = week
			record.Link = link
			record.GroupID = live.groupID
		}
	}
	return nil
}

// liveRef identifies the Canvas assignment an upsert produced.
type liveRef struct {
	id      int64
	name    string
	groupID int64
}

type upsertState struct {
	assignments    []canvas.Assignment
	discussions    []canvas.DiscussionTopic
	newQuizzes     []canvas.NewQuiz
	classicQuizzes []canvas.Quiz
	group          *canvas.AssignmentGroup
}

// ensureAssignmentGroup finds or creates the group that collects all
// built assignments.
func (b *Builder) ensureAssignmentGroup(ctx context.Context, courseID int) (*canvas.AssignmentGroup, error) {
	groups, err := b.api.ListAssignmentGroups(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list assignment groups: %w", err)
	}
	for i := range groups {
		if groups[i].Name == assignmentGroupName {
			return &groups[i], nil
		}
	}
	group, err := b.api.CreateAssignmentGroup(ctx, courseID, assignmentGroupName, 1)
	if err != nil {
		return nil, fmt.Errorf("create assignment group: %w", err)
	}
	return group, nil
}

// findRegularAssignment matches a record id against live assignments
// that are neither discussion shadows nor quiz shadows.
func findRegularAssignment(assignments []canvas.Assignment, id plan.ID) *canvas.Assignment {
	if !id.IsNumeric() {
		return nil
	}
	target := id.Int64()
	for i := range assignments {
		a := &assignments[i]
		if a.ID != target || a.QuizID != 0 {
			continue
		}
		if hasSubmissionType(a.SubmissionTypes, "discussion_topic") {
			continue
		}
		return a
	}
	return nil
}

func hasSubmissionType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (b *Builder) upsertRegular(ctx context.Context, courseID int, record *plan.Assignment, name, template, due string, state *upsertState, stats *Stats) (liveRef, error) {
	groupID := state.group.ID

	if existing := findRegularAssignment(state.assignments, record.ID); existing != nil {
		fresh, err := b.api.GetAssignment(ctx, courseID, existing.ID)
		if err != nil {
			return liveRef{}, fmt.Errorf("fetch assignment %d: %w", existing.ID, err)
		}

		var updates canvas.AssignmentParams
		changed := false
		if fresh.Description == "" {
			updates.Description = ptr(template)
			changed = true
		}
		if len(fresh.SubmissionTypes) == 0 {
			updates.SubmissionTypes = []string{"online_upload"}
			changed = true
		}
		if fresh.DueAt == "" {
			updates.DueAt = ptr(due)
			changed = true
		}
		if changed {
			if fresh, err = b.api.EditAssignment(ctx, courseID, fresh.ID, updates); err != nil {
				return liveRef{}, fmt.Errorf("update assignment %d: %w", existing.ID, err)
			}
			stats.AssignmentsUpdated++
		}
		if fresh.AssignmentGroupID != 0 {
			groupID = fresh.AssignmentGroupID
		}
		return liveRef{id: fresh.ID, name: nonEmpty(fresh.Name, name), groupID: groupID}, nil
	}

	created, err := b.api.CreateAssignment(ctx, courseID, canvas.AssignmentParams{
		Name:              name,
		Description:       ptr(template),
		SubmissionTypes:   []string{"online_upload"},
		PointsPossible:    ptr(100.0),
		GradingType:       "points",
		Published:         ptr(false),
		AssignmentGroupID: groupID,
		DueAt:             ptr(due),
	})
	if err != nil {
		return liveRef{}, fmt.Errorf("create assignment %q: %w", name, err)
	}
	state.assignments = append(state.assignments, *created)
	stats.AssignmentsCreated++
	return liveRef{id: created.ID, name: nonEmpty(created.Name, name), groupID: groupID}, nil
}

func (b *Builder) upsertDiscussion(ctx context.Context, courseID int, record *plan.Assignment, name, template, due string, state *upsertState, stats *Stats) (liveRef, error) {
	groupID := state.group.ID

	shadowParams := canvas.AssignmentParams{
		Name:              name,
		Description:       ptr(template),
		PointsPossible:    ptr(20.0),
		GradingType:       "points",
		SubmissionTypes:   []string{"discussion_topic"},
		AssignmentGroupID: groupID,
		DueAt:             ptr(due),
	}

	if existing := findDiscussion(state.discussions, record.ID); existing != nil {
		if existing.Message == "" {
			updated, err := b.api.EditDiscussion(ctx, courseID, existing.ID, canvas.DiscussionParams{
				Message: ptr(template),
			})
			if err != nil {
				return liveRef{}, fmt.Errorf("update discussion %d: %w", existing.ID, err)
			}
			*existing = *updated
			stats.DiscussionsUpdated++
		}

		if existing.AssignmentID != 0 {
			shadow, err := b.api.GetAssignment(ctx, courseID, existing.AssignmentID)
			if err != nil {
				return liveRef{}, fmt.Errorf("fetch discussion assignment %d: %w", existing.AssignmentID, err)
			}
			var updates canvas.AssignmentParams
			changed := false
			if shadow.Description == "" {
				updates.Description = ptr(template)
				changed = true
			}
			if shadow.DueAt == "" {
				updates.DueAt = ptr(due)
				changed = true
			}
			if len(shadow.SubmissionTypes) == 0 {
				updates.SubmissionTypes = []string{"discussion_topic"}
				changed = true
			}
			if changed {
				if shadow, err = b.api.EditAssignment(ctx, courseID, shadow.ID, updates); err != nil {
					return liveRef{}, fmt.Errorf("update discussion assignment %d: %w", shadow.ID, err)
				}
				stats.AssignmentsUpdated++
			}
			if shadow.AssignmentGroupID != 0 {
				groupID = shadow.AssignmentGroupID
			}
			return liveRef{id: shadow.ID, name: nonEmpty(shadow.Name, name), groupID: groupID}, nil
		}
	}

	created, err := b.api.CreateDiscussion(ctx, courseID, canvas.DiscussionParams{
		Title:          name,
		Message:        ptr(template),
		DiscussionType: "threaded",
		Published:      ptr(false),
		Assignment:     &shadowParams,
	})
	if err != nil {
		return liveRef{}, fmt.Errorf("create discussion %q: %w", name, err)
	}
	state.discussions = append(state.discussions, *created)
	stats.DiscussionsCreated++

	if created.AssignmentID == 0 {
		return liveRef{}, nil
	}
	shadow, err := b.api.GetAssignment(ctx, courseID, created.AssignmentID)
	if err != nil {
		return liveRef{}, fmt.Errorf("fetch discussion assignment %d: %w", created.AssignmentID, err)
	}
	state.assignments = append(state.assignments, *shadow)
	if shadow.AssignmentGroupID != 0 {
		groupID = shadow.AssignmentGroupID
	}
	return liveRef{id: shadow.ID, name: nonEmpty(shadow.Name, name), groupID: groupID}, nil
}

func (b *Builder) upsertNewQuiz(ctx context.Context, courseID int, record *plan.Assignment, name, template, due string, state *upsertState, stats *Stats) (liveRef, error) {
	groupID := state.group.ID

	if existing := findNewQuiz(state.newQuizzes, record.ID); existing != nil {
		if existing.Instructions == "" || existing.DueAt == "" {
			var updates canvas.NewQuizParams
			if existing.Instructions == "" {
				updates.Instructions = ptr(template)
			}
			if existing.DueAt == "" {
				updates.DueAt = ptr(due)
			}
			updated, err := b.api.EditNewQuiz(ctx, courseID, existing.IntID(), updates)
			if err != nil {
				return liveRef{}, fmt.Errorf("update new quiz %s: %w", existing.ID, err)
			}
			*existing = *updated
			stats.NewQuizzesUpdated++
		}

		if shadowID, _ := existing.AssignmentID.Int64(); shadowID != 0 {
			ref, err := b.fillShadowAssignment(ctx, courseID, shadowID, due, name, groupID, stats)
			if err != nil {
				return liveRef{}, err
			}
			return ref, nil
		}
		return liveRef{id: existing.IntID(), name: nonEmpty(existing.Title, name), groupID: groupID}, nil
	}

	created, err := b.api.CreateNewQuiz(ctx, courseID, canvas.NewQuizParams{
		Title:             name,
		Instructions:      ptr(template),
		GradingType:       "percent",
		PointsPossible:    ptr(100.0),
		Published:         ptr(false),
		AssignmentGroupID: groupID,
		DueAt:             ptr(due),
	})
	if err != nil {
		return liveRef{}, fmt.Errorf("create new quiz %q: %w", name, err)
	}
	state.newQuizzes = append(state.newQuizzes, *created)
	stats.NewQuizzesCreated++

	liveID := created.IntID()
	if shadowID, _ := created.AssignmentID.Int64(); shadowID != 0 {
		liveID = shadowID
	}
	return liveRef{id: liveID, name: nonEmpty(created.Title, name), groupID: groupID}, nil
}

func (b *Builder) upsertClassicQuiz(ctx context.Context, courseID int, record *plan.Assignment, name, template, due string, state *upsertState, stats *Stats) (liveRef, error) {
	groupID := state.group.ID

	if existing := findClassicQuiz(state.classicQuizzes, record.ID); existing != nil {
		if existing.Description == "" || existing.DueAt == "" {
			var updates canvas.QuizParams
			if existing.Description == "" {
				updates.Description = ptr(template)
			}
			if existing.DueAt == "" {
				updates.DueAt = ptr(due)
			}
			updated, err := b.api.EditQuiz(ctx, courseID, existing.ID, updates)
			if err != nil {
				return liveRef{}, fmt.Errorf("update classic quiz %d: %w", existing.ID, err)
			}
			*existing = *updated
			stats.ClassicQuizzesUpdated++
		}

		if existing.AssignmentID != 0 {
			ref, err := b.fillShadowAssignment(ctx, courseID, existing.AssignmentID, due, name, groupID, stats)
			if err != nil {
				return liveRef{}, err
			}
			return ref, nil
		}
		return liveRef{id: existing.ID, name: nonEmpty(existing.Title, name), groupID: groupID}, nil
	}

	created, err := b.api.CreateQuiz(ctx, courseID, canvas.QuizParams{
		Title:                  name,
		QuizType:               "assignment",
		Description:            ptr(template),
		AllowedAttempts:        ptr(1),
		ShowOneQuestionAtATime: ptr(true),
		PointsPossible:         ptr(100.0),
		Published:              ptr(false),
		AssignmentGroupID:      groupID,
		DueAt:                  ptr(due),
	})
	if err != nil {
		return liveRef{}, fmt.Errorf("create classic quiz %q: %w", name, err)
	}
	state.classicQuizzes = append(state.classicQuizzes, *created)
	stats.ClassicQuizzesCreated++

	liveID := created.ID
	if created.AssignmentID != 0 {
		liveID = created.AssignmentID
	}
	return liveRef{id: liveID, name: nonEmpty(created.Title, name), groupID: groupID}, nil
}

// fillShadowAssignment tops up the shadow assignment behind a quiz or
// discussion: due date only when missing, never a full overwrite.
func (b *Builder) fillShadowAssignment(ctx context.Context, courseID int, assignmentID int64, due, fallbackName string, groupID int64, stats *Stats) (liveRef, error) {
	shadow, err := b.api.GetAssignment(ctx, courseID, assignmentID)
	if err != nil {
		return liveRef{}, fmt.Errorf("fetch shadow assignment %d: %w", assignmentID, err)
	}

	var updates canvas.AssignmentParams
	changed := false
	if shadow.DueAt == "" {
		updates.DueAt = ptr(due)
		changed = true
	}
	if shadow.AssignmentGroupID == 0 {
		updates.AssignmentGroupID = groupID
		changed = true
	}
	if changed {
		if shadow, err = b.api.EditAssignment(ctx, courseID, shadow.ID, updates); err != nil {
			return liveRef{}, fmt.Errorf("update shadow assignment %d: %w", shadow.ID, err)
		}
		stats.AssignmentsUpdated++
	}
	if shadow.AssignmentGroupID != 0 {
		groupID = shadow.AssignmentGroupID
	}
	return liveRef{id: shadow.ID, name: nonEmpty(shadow.Name, fallbackName), groupID: groupID}, nil
}

func findDiscussion(discussions []canvas.DiscussionTopic, id plan.ID) *canvas.DiscussionTopic {
	if !id.IsNumeric() {
		return nil
	}
	target := id.Int64()
	for i := range discussions {
		if discussions[i].AssignmentID == target {
			return &discussions[i]
		}
	}
	return nil
}

func findNewQuiz(quizzes []canvas.NewQuiz, id plan.ID) *canvas.NewQuiz {
	if !id.IsNumeric() {
		return nil
	}
	target := id.Int64()
	for i := range quizzes {
		if n, _ := quizzes[i].AssignmentID.Int64(); n == target {
			return &quizzes[i]
		}
	}
	return nil
}

func findClassicQuiz(quizzes []canvas.Quiz, id plan.ID) *canvas.Quiz {
	if !id.IsNumeric() {
		return nil
	}
	target := id.Int64()
	for i := range quizzes {
		if quizzes[i].AssignmentID == target {
			return &quizzes[i]
		}
	}
	return nil
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
