package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	assignmentsCourseID     int
	assignmentsAssignmentID int64
)

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "List assignments in a course, or submissions for one assignment",
	Long: `List the assignments of a Canvas course. With --assignment-id, list
that assignment's submissions instead.

Examples:
  cagforge assignments --course-id 43110
  cagforge assignments --course-id 43110 --assignment-id 520211`,
	RunE: runAssignments,
}

func init() {
	assignmentsCmd.Flags().IntVar(&assignmentsCourseID, "course-id", 0, "Canvas course id")
	assignmentsCmd.Flags().Int64Var(&assignmentsAssignmentID, "assignment-id", 0, "list submissions for this assignment")
	_ = assignmentsCmd.MarkFlagRequired("course-id")
}

func runAssignments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, _, err := canvasClient()
	if err != nil {
		return err
	}

	if assignmentsAssignmentID != 0 {
		return listSubmissions(ctx, client, assignmentsCourseID, assignmentsAssignmentID)
	}

	assignments, err := client.ListAssignments(ctx, assignmentsCourseID)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}
	if len(assignments) == 0 {
		fmt.Println("No assignments found.")
		return nil
	}

	fmt.Println(defaultTheme.headingStyle().Render(fmt.Sprintf("%d assignments", len(assignments))))
	for _, a := range assignments {
		due := a.DueAt
		if due == "" {
			due = "no due date"
		}
		fmt.Printf("  %8d  %-50s %s  %s\n", a.ID, a.Name, a.WorkflowState, due)
	}
	return nil
}
