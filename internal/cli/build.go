package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edtools/cagforge/internal/builder"
	"github.com/edtools/cagforge/internal/canvas"
	"github.com/edtools/cagforge/internal/config"
	"github.com/edtools/cagforge/internal/plan"
	"github.com/edtools/cagforge/internal/reconcile"
)

var (
	buildInputJSON       string
	buildFilesRoot       string
	buildDryRun          bool
	buildConfirmWrite    bool
	buildBaseURL         string
	buildAPIToken        string
	buildPrintCourseJSON bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a Canvas course from a buildRequest JSON payload",
	Long: `Build reads a buildRequest payload and creates the course in Canvas:
syllabus placeholders, assignments, discussions, quizzes, modules, pages
and module items.

Generated assignment ids are first reconciled against the live course so
repeated builds update existing objects instead of duplicating them.

Writes only happen with --confirm-write; --dry-run validates the payload
and resolves the five templates without touching the course.

Examples:
  cagforge build --input-json bus301.json --dry-run
  cagforge build --input-json bus301.json --confirm-write`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildInputJSON, "input-json", "", "path to the buildRequest JSON file")
	f.StringVar(&buildFilesRoot, "files-root", "", "folder for build artifacts")
	f.BoolVar(&buildDryRun, "dry-run", false, "validate and load templates only, no Canvas writes")
	f.BoolVar(&buildConfirmWrite, "confirm-write", false, "required for non-dry-run execution")
	f.StringVar(&buildBaseURL, "base-url", "", "Canvas base URL override")
	f.StringVar(&buildAPIToken, "api-token", "", "Canvas API token override")
	f.BoolVar(&buildPrintCourseJSON, "print-course-json", false, "print the built course JSON to stdout")

	_ = buildCmd.MarkFlagRequired("input-json")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := loadBuildRequest()
	if err != nil {
		return err
	}

	client, baseURL, err := canvasClient()
	if err != nil {
		return err
	}

	// Match generated ids against the live course before building, so
	// type-2 upserts update instead of duplicate.
	if req.BuildType == 2 {
		live, err := client.ListAssignments(ctx, req.CourseID)
		if err != nil {
			return fmt.Errorf("list assignments for reconciliation: %w", err)
		}
		refs := make([]reconcile.LiveAssignment, len(live))
		for i, a := range live {
			refs[i] = reconcile.LiveAssignment{ID: a.ID, Name: a.Name}
		}
		report := reconcile.Reconcile(&req.Course, refs)
		logger.Info("reconciled assignments",
			"matched", report.Matched, "new", report.Unmatched, "split", report.Split)
	}

	filesRoot := buildFilesRoot
	if filesRoot == "" {
		filesRoot = cfg.FilesRoot
	}
	b := builder.New(client, builder.Options{
		FilesRoot:    filesRoot,
		BaseURL:      baseURL,
		DryRun:       buildDryRun,
		ConfirmWrite: buildConfirmWrite,
	}, logger)

	result, err := b.Run(ctx, req)
	if err != nil {
		return err
	}

	printBuildResult(result)
	if buildPrintCourseJSON {
		data, err := plan.Marshal(req.Course)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}
	return nil
}

func loadBuildRequest() (*plan.BuildRequest, error) {
	d := config.BuiltinDefaults()
	defaults := plan.BuildRequest{
		CourseID:                -1,
		StartDate:               d.StartDate,
		EndDate:                 d.EndDate,
		DefaultDueDay:           d.DefaultDueDay,
		DefaultDiscussionDueDay: d.DefaultDiscussionDueDay,
		DefaultLastDay:          d.DefaultLastDay,
		BuildType:               d.BuildType,
		OverviewPageTemplate:    d.OverviewPageTemplate,
		DiscussionTemplate:      d.DiscussionTemplate,
		AssignmentTemplate:      d.AssignmentTemplate,
		NewQuizTemplate:         d.NewQuizTemplate,
		ClassicQuizTemplate:     d.ClassicQuizTemplate,
	}
	return plan.Load(buildInputJSON, defaults)
}

// canvasClient builds a client from flags and environment, failing fast
// when the connection settings are incomplete.
func canvasClient() (*canvas.Client, string, error) {
	baseURL := buildBaseURL
	if baseURL == "" {
		baseURL = cfg.CanvasBaseURL
	}
	token := buildAPIToken
	if token == "" {
		token = cfg.CanvasAPIToken
	}
	if baseURL == "" {
		return nil, "", fmt.Errorf("missing Canvas base URL: set CANVAS_BASE_URL or pass --base-url")
	}
	if token == "" {
		return nil, "", fmt.Errorf("missing Canvas API token: set CANVAS_API_TOKEN or pass --api-token")
	}
	return canvas.New(baseURL, token), baseURL, nil
}

func printBuildResult(result *builder.Result) {
	heading := defaultTheme.successStyle()
	if result.DryRun {
		heading = defaultTheme.headingStyle()
	}
	fmt.Println(heading.Render(result.Message))
	fmt.Printf("  course:  %s\n", result.CourseURL)
	fmt.Printf("  run:     %s\n", result.RunID)
	fmt.Printf("  modules: %s\n", result.Artifacts.ModulesFile)
	fmt.Printf("  built:   %s\n", result.Artifacts.BuiltFile)
	if result.Stats != nil {
		s := result.Stats
		fmt.Println(defaultTheme.hintStyle().Render(fmt.Sprintf(
			"  assignments %d created / %d updated, discussions %d/%d, quizzes %d/%d, classic %d/%d, modules %d, items %d, pages %d",
			s.AssignmentsCreated, s.AssignmentsUpdated,
			s.DiscussionsCreated, s.DiscussionsUpdated,
			s.NewQuizzesCreated, s.NewQuizzesUpdated,
			s.ClassicQuizzesCreated, s.ClassicQuizzesUpdated,
			s.ModulesCreated, s.ModuleItemsCreated, s.PagesCreated)))
	}
}
