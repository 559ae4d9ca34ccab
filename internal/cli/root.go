// Package cli provides the command-line interface for cagforge.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edtools/cagforge/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and logger, initialized before any subcommand runs
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cagforge",
	Short: "Course alignment grid extractor and Canvas course builder",
	Long: `Cagforge turns a course alignment grid (.docx) into a canonical
buildRequest JSON payload and builds the corresponding Canvas course:
syllabus, assignments, discussions, quizzes, modules and pages.

Extraction is deterministic first, with an LLM fallback for documents
that stray from the expected grid layout.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(assignmentsCmd)
	rootCmd.AddCommand(gradeCmd)
}
