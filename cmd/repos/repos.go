package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/gash-io/gash/internal/mining"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/internal/session"
	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/logger"
)

// RunOptionsRepos holds the arguments for the repos command.
type RunOptionsRepos struct {
	Age   int
	Stars int
}

// Global variables for configuration and command arguments
var (
	AppConfig         *config.Config
	tokenFlag         *string
	reposOptions      RunOptionsRepos
	exampleReposUsage = `  # Mining public repositories older than 5 years with more than 3000 stars
  gash repos

  # Mining public repositories older than 2 years with more than 500 stars
  gash repos --age 2 --stars 500`
)

var ReposCmd = &cobra.Command{
	Use:                   "repos [--age YEARS, default=5] [--stars N, default=3000]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReposUsage,
	Short:                 "Searches GitHub for popular repositories that use workflows and writes them to a dataset",
	RunE:                  runReposCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, token *string) {
	AppConfig = cfg
	tokenFlag = token
}

// runReposCommand executes the repos command.
func runReposCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-repos")

	if err := validateReposArgs(&reposOptions, args); err != nil {
		logger.Error("invalid repos arguments", "error", err)
		return err
	}

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
	if !s.Online() {
		return fmt.Errorf("the repos command needs platform access and cannot run offline")
	}

	query := mining.Query(time.Now(), reposOptions.Age, reposOptions.Stars)
	logger.Info("searching repositories", "query", query)

	miner := mining.New(s.GitHub, minerOptions(s.Config, logger))
	candidates, err := miner.Discover(ctx, query)
	if err != nil {
		logger.Error("repository discovery failed", "error", err)
		return err
	}

	path := mining.DatasetPath(s.OutputFolder())
	if err := mining.SaveDataset(path, candidates); err != nil {
		logger.Error("failed to write dataset", "path", path, "error", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d repositories written to %s\n", len(candidates), path)
	logger.Info("repos command completed successfully", "repositories", len(candidates))
	return nil
}

// minerOptions maps the mining configuration onto discovery options.
func minerOptions(cfg *config.Config, logger hclog.Logger) mining.Options {
	return mining.Options{
		Workers:  config.SetThen(cfg.Mining.Workers, mining.DefaultWorkers),
		MaxPages: config.SetThen(cfg.Mining.MaxPages, mining.DefaultMaxPages),
		PerPage:  config.SetThen(cfg.Mining.PerPage, mining.DefaultPerPage),
		Retry:    retry.Default(logger),
		Logger:   logger.Named("mining"),
	}
}

func init() {
	ReposCmd.Flags().IntVar(&reposOptions.Age, "age", mining.DefaultAgeYears, "Minimum repository age in years.")
	ReposCmd.Flags().IntVar(&reposOptions.Stars, "stars", mining.DefaultStars, "Repositories must have more than this many stars.")
	ReposCmd.Flags().BoolP("help", "h", false, "Show help for the repos command.")
}
