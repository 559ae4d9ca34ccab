package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edtools/cagforge/internal/config"
	"github.com/edtools/cagforge/internal/docx"
	"github.com/edtools/cagforge/internal/llm"
	"github.com/edtools/cagforge/internal/parser"
	"github.com/edtools/cagforge/internal/plan"
	"github.com/edtools/cagforge/internal/resolve"
	"github.com/edtools/cagforge/internal/schema"
)

var (
	extractInputDocx    string
	extractOutputJSON   string
	extractSchemaPath   string
	extractMode         string
	extractInteractive  bool
	extractLLMModel     string
	extractAPIKeyEnv    string
	extractInstructions string
	extractDefaultsFile string

	extractCourseID         int
	extractStartDate        string
	extractEndDate          string
	extractDueDay           int
	extractDiscussionDueDay int
	extractLastDay          int
	extractBuildType        int

	extractOverviewTemplate    string
	extractDiscussionTemplate  string
	extractAssignmentTemplate  string
	extractNewQuizTemplate     string
	extractClassicQuizTemplate string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a course alignment grid into a buildRequest JSON payload",
	Long: `Extract reads a course alignment grid (.docx), parses it into the
canonical buildRequest shape and writes the JSON payload.

The deterministic parser runs first. In auto mode, low-confidence output
routes the document to the LLM fallback; deterministic mode never falls
back and llm mode always uses the model.

Missing required fields (course_id, dates, textbooks, policy) are
prompted for on a terminal unless --interactive=false, in which case
they fail the run with the full list of gaps.

Examples:
  cagforge extract --input-docx BUS301_CAG.docx --output-json bus301.json
  cagforge extract --input-docx grid.docx --mode llm --course-id 43110
  cagforge extract --input-docx grid.docx --interactive=false`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractInputDocx, "input-docx", "", "path to the source .docx file")
	f.StringVar(&extractOutputJSON, "output-json", "", "output .json path (default: print to stdout)")
	f.StringVar(&extractSchemaPath, "schema", "", "JSON schema path overriding the embedded schema")
	f.StringVar(&extractMode, "mode", "auto", "parse mode: auto, deterministic or llm")
	f.BoolVar(&extractInteractive, "interactive", true, "prompt for missing fields on a terminal")
	f.StringVar(&extractLLMModel, "llm-model", "", "LLM model name override")
	f.StringVar(&extractAPIKeyEnv, "api-key-env", "", "environment variable holding the LLM API key")
	f.StringVar(&extractInstructions, "instructions", "", "extraction instruction markdown path")
	f.StringVar(&extractDefaultsFile, "defaults", "", "build defaults yaml path (default: cagforge.yaml)")

	f.IntVar(&extractCourseID, "course-id", -1, "target Canvas course id")
	f.StringVar(&extractStartDate, "start-date", "", "course start date (YYYY-MM-DD HH:MM:SS)")
	f.StringVar(&extractEndDate, "end-date", "", "course end date (YYYY-MM-DD HH:MM:SS)")
	f.IntVar(&extractDueDay, "default-due-day", -1, "due weekday for assignments (0=Monday .. 6=Sunday)")
	f.IntVar(&extractDiscussionDueDay, "default-discussion-due-day", -1, "due weekday for discussions")
	f.IntVar(&extractLastDay, "default-last-day", -1, "due weekday for the final module")
	f.IntVar(&extractBuildType, "build-type", 0, "build type: 1 maps existing assignments, 2 builds everything")

	f.StringVar(&extractOverviewTemplate, "overview-page-template", "", "overview page template title")
	f.StringVar(&extractDiscussionTemplate, "discussion-template", "", "discussion template title")
	f.StringVar(&extractAssignmentTemplate, "assignment-template", "", "assignment template name")
	f.StringVar(&extractNewQuizTemplate, "newquiz-template", "", "new quiz template title")
	f.StringVar(&extractClassicQuizTemplate, "classicquiz-template", "", "classic quiz template title")

	_ = extractCmd.MarkFlagRequired("input-docx")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := docx.Extract(extractInputDocx)
	if err != nil {
		return err
	}

	contentCourseID := "{courseid}"
	if extractCourseID > 0 {
		contentCourseID = strconv.Itoa(extractCourseID)
	}

	course, parsedBy, err := runParse(ctx, doc, contentCourseID)
	if err != nil {
		return err
	}
	logger.Info("document parsed", "parser", parsedBy, "modules", len(course.Modules))

	req := requestFromDefaults()
	req.Course = course
	req.Course.EnsureShape()
	applyCourseDates(req, extractStartDate, extractEndDate)

	interactive := extractInteractive && resolve.StdinIsTerminal()
	if err := resolve.Run(req, interactive, resolve.NewTerminalResolver()); err != nil {
		return err
	}
	resolve.RewriteCourseLinks(&req.Course, req.CourseID)

	if err := validateRequest(req); err != nil {
		return err
	}

	if extractOutputJSON != "" {
		if err := plan.WriteFile(extractOutputJSON, req); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", defaultTheme.successStyle().Render("Wrote"), extractOutputJSON)
	} else {
		data, err := plan.Marshal(req)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}

	fmt.Println(defaultTheme.hintStyle().Render(
		fmt.Sprintf("parser=%s modules=%d course=%s", parsedBy, len(req.Course.Modules), req.Course.CourseCode)))
	return nil
}

// runParse runs the two-stage parse and reports which stage produced the
// course.
func runParse(ctx context.Context, doc *docx.Document, contentCourseID string) (plan.Course, string, error) {
	outcome := parser.Parse(doc, contentCourseID)
	decision, err := parser.Decide(outcome, parser.Mode(extractMode))
	if err != nil {
		return plan.Course{}, "", err
	}

	switch decision {
	case parser.UseDeterministic:
		return outcome.Course, "deterministic", nil
	case parser.UseFallback:
		if len(outcome.Reasons) > 0 {
			logger.Info("falling back to llm parse", "reasons", outcome.Reasons, "score", outcome.Score)
		}
		course, err := runLLMParse(ctx, doc)
		if err != nil {
			if outcome.Err != nil {
				return plan.Course{}, "", fmt.Errorf("deterministic parse failed: %v; llm parse failed: %w", outcome.Err, err)
			}
			return plan.Course{}, "", err
		}
		return course, "llm", nil
	default:
		return plan.Course{}, "", err
	}
}

func runLLMParse(ctx context.Context, doc *docx.Document) (plan.Course, error) {
	llmCfg := cfg
	if extractLLMModel != "" {
		llmCfg.LLMModel = extractLLMModel
	}
	if extractAPIKeyEnv != "" {
		llmCfg.APIKeyEnv = extractAPIKeyEnv
	}

	model, err := llm.NewModel(llmCfg)
	if err != nil {
		return plan.Course{}, err
	}
	instructions, err := llm.LoadInstructions(extractInstructions)
	if err != nil {
		return plan.Course{}, err
	}

	schemaHint := ""
	if extractSchemaPath != "" {
		raw, err := os.ReadFile(extractSchemaPath)
		if err != nil {
			return plan.Course{}, fmt.Errorf("read schema: %w", err)
		}
		schemaHint = string(raw)
	}

	p := &llm.Parser{Completer: model}
	return p.Parse(ctx, docx.RenderForModel(doc), instructions, schemaHint)
}

// requestFromDefaults seeds a buildRequest from the defaults file merged
// with any explicit flag overrides.
func requestFromDefaults() *plan.BuildRequest {
	d, err := config.LoadDefaults(extractDefaultsFile)
	if err != nil {
		logger.Warn("defaults file unusable, using builtins", "error", err)
		d = config.BuiltinDefaults()
	}

	req := &plan.BuildRequest{
		CourseID:                extractCourseID,
		StartDate:               pick(extractStartDate, d.StartDate),
		EndDate:                 pick(extractEndDate, d.EndDate),
		DefaultDueDay:           pickDay(extractDueDay, d.DefaultDueDay),
		DefaultDiscussionDueDay: pickDay(extractDiscussionDueDay, d.DefaultDiscussionDueDay),
		DefaultLastDay:          pickDay(extractLastDay, d.DefaultLastDay),
		BuildType:               d.BuildType,
		OverviewPageTemplate:    pick(extractOverviewTemplate, d.OverviewPageTemplate),
		DiscussionTemplate:      pick(extractDiscussionTemplate, d.DiscussionTemplate),
		AssignmentTemplate:      pick(extractAssignmentTemplate, d.AssignmentTemplate),
		NewQuizTemplate:         pick(extractNewQuizTemplate, d.NewQuizTemplate),
		ClassicQuizTemplate:     pick(extractClassicQuizTemplate, d.ClassicQuizTemplate),
	}
	if extractBuildType == 1 || extractBuildType == 2 {
		req.BuildType = extractBuildType
	}
	return req
}

// applyCourseDates anchors the envelope date range on the document's
// extracted start_at/end_at when no flag named one. Precedence is flag,
// then document, then defaults file: the grid's dates carry the semester
// the builder's due-date math runs against.
func applyCourseDates(req *plan.BuildRequest, startFlag, endFlag string) {
	if startFlag == "" && req.Course.StartAt != "" {
		req.StartDate = req.Course.StartAt + " 00:00:00"
	}
	if endFlag == "" && req.Course.EndAt != "" {
		req.EndDate = req.Course.EndAt + " 23:59:59"
	}
}

// validateRequest checks the payload against the wire schema, embedded
// or caller-supplied.
func validateRequest(req *plan.BuildRequest) error {
	var (
		validator *schema.Validator
		err       error
	)
	if extractSchemaPath != "" {
		validator, err = schema.FromFile(extractSchemaPath)
	} else {
		validator, err = schema.New()
	}
	if err != nil {
		return err
	}

	payload, err := plan.Marshal(req)
	if err != nil {
		return err
	}
	return validator.Validate(payload)
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func pickDay(override, fallback int) int {
	if override >= 0 && override <= 6 {
		return override
	}
	return fallback
}
