package analyze

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gash-io/gash/internal/session"
	"github.com/gash-io/gash/pkg/shared"
	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/logger"
)

// RunOptionsAnalyze holds the arguments for the analyze command.
type RunOptionsAnalyze struct {
	File      string
	Dir       string
	Threads   int
	Detectors []string
	Format    string
	Output    string
	Offline   bool
}

// Global variables for configuration and command arguments
var (
	AppConfig           *config.Config
	tokenFlag           *string
	analyzeOptions      RunOptionsAnalyze
	exampleAnalyzeUsage = `  # Analyzing a single workflow file
  gash analyze --file .github/workflows/ci.yml

  # Analyzing every workflow below a directory with 5 concurrent threads
  gash analyze --dir /path/to/checkout -j 5

  # Running a subset of detectors without platform lookups
  gash analyze --file ci.yml --detector HardCodedSecret --detector LongBlocks --offline

  # Writing a SARIF report
  gash analyze --dir /path/to/checkout --format sarif -o /path/to/report.sarif`
)

var AnalyzeCmd = &cobra.Command{
	Use:                   "analyze {--file/-f PATH | --dir/-d PATH [-j THREADS_NUMBER, default=1]} [--detector NAME]... [--format text|sarif|json] [--output/-o PATH] [--offline]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAnalyzeUsage,
	Short:                 "Runs the smell detectors over one workflow file or a directory tree",
	RunE:                  runAnalyzeCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, token *string) {
	AppConfig = cfg
	tokenFlag = token
}

// runAnalyzeCommand executes the analyze command.
func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-analyze")

	if err := validateAnalyzeArgs(&analyzeOptions, args); err != nil {
		logger.Error("invalid analyze arguments", "error", err)
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := session.Open(ctx, AppConfig, logger, session.Options{
		TokenFlag: stringValue(tokenFlag),
		Offline:   analyzeOptions.Offline,
	})
	if err != nil {
		return err
	}

	runner, err := s.Runner(analyzeOptions.Detectors...)
	if err != nil {
		logger.Error("failed to build detectors", "error", err)
		return err
	}

	a := &analyzer{runner: runner, logger: logger}
	var reports []fileReport
	if analyzeOptions.File != "" {
		report, err := a.analyzeFile(ctx, analyzeOptions.File)
		if err != nil {
			logger.Error("failed to analyze file", "file", analyzeOptions.File, "error", err)
			return err
		}
		reports = []fileReport{report}
	} else {
		reports, err = a.analyzeDir(ctx, analyzeOptions.Dir, analyzeOptions.Threads)
		if err != nil {
			logger.Error("failed to analyze directory", "dir", analyzeOptions.Dir, "error", err)
			return err
		}
	}

	if err := writeReports(cmd.OutOrStdout(), &analyzeOptions, reports, logger); err != nil {
		logger.Error("failed to write report", "error", err)
		return err
	}

	logger.Debug("analyze result", "files", len(reports))
	logger.Info("analyze command completed successfully")
	return nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.File, "file", "f", "", "Path to a single workflow file to analyze.")
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.Dir, "dir", "d", "", "Path to a directory tree; every .yml/.yaml file below it is analyzed.")
	AnalyzeCmd.Flags().IntVarP(&analyzeOptions.Threads, "threads", "j", 1, "Number of concurrent threads to use with --dir.")
	AnalyzeCmd.Flags().StringSliceVar(&analyzeOptions.Detectors, "detector", nil, "Detector to run. Can be repeated; defaults to every detector.")
	AnalyzeCmd.Flags().StringVar(&analyzeOptions.Format, "format", FormatText, "Report format: text, sarif or json.")
	AnalyzeCmd.Flags().StringVarP(&analyzeOptions.Output, "output", "o", "", "Path to the report file or folder. Defaults to standard output.")
	AnalyzeCmd.Flags().BoolVar(&analyzeOptions.Offline, "offline", false, "Disable platform lookups. Remote dependency checks are skipped.")
	AnalyzeCmd.Flags().BoolP("help", "h", false, "Show help for the analyze command.")
}
