package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edtools/cagforge/internal/canvas"
)

var (
	gradeCourseID     int
	gradeAssignmentID int64
	gradeUserID       int64
	gradeScore        string
	gradeConfirm      bool
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Post a grade for one student's submission",
	Long: `Post a grade on an assignment submission. The score is passed through
to Canvas, so points ("87"), percentages ("92%") and letter grades ("B+")
all work. Requires --confirm because this writes to the gradebook.

Examples:
  cagforge grade --course-id 43110 --assignment-id 520211 --user-id 9042 --score 87 --confirm`,
	RunE: runGrade,
}

func init() {
	f := gradeCmd.Flags()
	f.IntVar(&gradeCourseID, "course-id", 0, "Canvas course id")
	f.Int64Var(&gradeAssignmentID, "assignment-id", 0, "assignment id")
	f.Int64Var(&gradeUserID, "user-id", 0, "student user id")
	f.StringVar(&gradeScore, "score", "", "grade to post")
	f.BoolVar(&gradeConfirm, "confirm", false, "required, grading writes to the gradebook")
	_ = gradeCmd.MarkFlagRequired("course-id")
	_ = gradeCmd.MarkFlagRequired("assignment-id")
	_ = gradeCmd.MarkFlagRequired("user-id")
	_ = gradeCmd.MarkFlagRequired("score")
}

func runGrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !gradeConfirm {
		return fmt.Errorf("posting a grade requires --confirm")
	}

	client, _, err := canvasClient()
	if err != nil {
		return err
	}

	submission, err := client.PostGrade(ctx, gradeCourseID, gradeAssignmentID, gradeUserID, gradeScore)
	if err != nil {
		return fmt.Errorf("post grade: %w", err)
	}

	fmt.Println(defaultTheme.successStyle().Render("Grade posted"))
	fmt.Printf("  user %d, assignment %d: %s (score %.2f)\n",
		submission.UserID, gradeAssignmentID, submission.Grade, submission.Score)
	return nil
}

func listSubmissions(ctx context.Context, client *canvas.Client, courseID int, assignmentID int64) error {
	submissions, err := client.ListSubmissions(ctx, courseID, assignmentID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	if len(submissions) == 0 {
		fmt.Println("No submissions found.")
		return nil
	}

	fmt.Println(defaultTheme.headingStyle().Render(fmt.Sprintf("%d submissions", len(submissions))))
	for _, s := range submissions {
		late := ""
		if s.Late {
			late = "  late"
		}
		grade := s.Grade
		if grade == "" {
			grade = "-"
		}
		fmt.Printf("  user %8d  %-12s grade %-6s%s\n", s.UserID, s.WorkflowState, grade, late)
	}
	return nil
}
