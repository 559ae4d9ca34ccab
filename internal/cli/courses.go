package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List Canvas courses visible to the configured token",
	RunE:  runCourses,
}

func runCourses(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, _, err := canvasClient()
	if err != nil {
		return err
	}

	courses, err := client.ListCourses(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}
	if len(courses) == 0 {
		fmt.Println("No courses found.")
		return nil
	}

	fmt.Println(defaultTheme.headingStyle().Render(fmt.Sprintf("%d courses", len(courses))))
	for _, course := range courses {
		fmt.Printf("  %8d  %-12s %s\n", course.ID, course.CourseCode, course.Name)
	}
	return nil
}
