package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gash-io/gash/cmd/analyze"
	"github.com/gash-io/gash/cmd/batch"
	"github.com/gash-io/gash/cmd/commits"
	"github.com/gash-io/gash/cmd/repos"
	"github.com/gash-io/gash/cmd/version"
	"github.com/gash-io/gash/pkg/shared/config"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

// Exit codes of the gash binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitAuth    = 2
)

var (
	cfgFile   string
	token     string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "gash [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "GASH detects smells in GitHub Actions workflows.",
		Long: `GASH analyzes GitHub Actions workflow files for security, maintainability and
	configuration smells, and replays the detectors over the history of repositories to build datasets.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $GASH_HOME/config.yml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "GitHub token (overrides GASH_GITHUB_TOKEN, GITHUB_TOKEN and the config file)")

	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(analyze.AnalyzeCmd)
	rootCmd.AddCommand(commits.CommitsCmd)
	rootCmd.AddCommand(batch.BatchCmd)
	rootCmd.AddCommand(repos.ReposCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var cmdErr *gasherrors.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	if gasherrors.IsFatal(err) {
		return ExitAuth
	}
	return ExitFailure
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %v\n", err)
		os.Exit(ExitFailure)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}

	version.Init(AppConfig)
	analyze.Init(AppConfig, &token)
	commits.Init(AppConfig, &token)
	batch.Init(AppConfig, &token)
	repos.Init(AppConfig, &token)
}
