package batch

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gash-io/gash/internal/mining"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/internal/session"
	"github.com/gash-io/gash/pkg/shared"
	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/logger"
)

// RunOptionsBatch holds the arguments for the batch command.
type RunOptionsBatch struct {
	File      string
	Column    int
	Delimiter string
}

// Global variables for configuration and command arguments
var (
	AppConfig         *config.Config
	tokenFlag         *string
	batchOptions      RunOptionsBatch
	exampleBatchUsage = `  # Replaying every repository listed in the fourth column of a semicolon-delimited file
  gash batch --file repos.csv --column 3

  # Replaying the repositories of a dataset written by the repos command
  gash batch --file ~/.gash/output/datasets/repos_dataset.csv --column 3 --delimiter ,`
)

var BatchCmd = &cobra.Command{
	Use:                   "batch --file/-f PATH --column/-c INDEX [--delimiter CHAR, default=;]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleBatchUsage,
	Short:                 "Replays the workflow history of every repository listed in a CSV file",
	RunE:                  runBatchCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, token *string) {
	AppConfig = cfg
	tokenFlag = token
}

// runBatchCommand executes the batch command.
func runBatchCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-batch")

	if err := validateBatchArgs(&batchOptions, args); err != nil {
		logger.Error("invalid batch arguments", "error", err)
		return err
	}

	urls, err := mining.ReadURLsFile(batchOptions.File, batchOptions.Column, []rune(batchOptions.Delimiter)[0])
	if err != nil {
		logger.Error("failed to read repository list", "file", batchOptions.File, "error", err)
		return err
	}
	logger.Info("repositories loaded", "file", batchOptions.File, "count", len(urls))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var token string
	if tokenFlag != nil {
		token = *tokenFlag
	}
	s, err := session.Open(ctx, AppConfig, logger, session.Options{TokenFlag: token})
	if err != nil {
		return err
	}

	result, err := replayAll(ctx, s, urls, retry.Default(logger), logger)
	fmt.Fprintf(cmd.OutOrStdout(), "%d repositories succeeded, %d failed\n", len(result.Succeeded), len(result.Failed))
	if err != nil {
		logger.Error("batch command aborted", "error", err)
		return err
	}

	logger.Info("batch command completed", "succeeded", len(result.Succeeded), "failed", len(result.Failed))
	return nil
}

func init() {
	BatchCmd.Flags().StringVarP(&batchOptions.File, "file", "f", "", "Path to a CSV file with repository URLs. The first row is a header.")
	BatchCmd.Flags().IntVarP(&batchOptions.Column, "column", "c", -1, "Zero-based index of the column holding the repository URL.")
	BatchCmd.Flags().StringVar(&batchOptions.Delimiter, "delimiter", ";", "Single-character CSV delimiter.")
	BatchCmd.Flags().BoolP("help", "h", false, "Show help for the batch command.")
}
