package commits

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gash-io/gash/internal/replay"
	"github.com/gash-io/gash/internal/session"
	"github.com/gash-io/gash/pkg/shared"
	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/logger"
)

// RunOptionsCommits holds the arguments for the commits command.
type RunOptionsCommits struct {
	URL      string
	Path     string
	AuthType string
	SSHKey   string
}

// Global variables for configuration and command arguments
var (
	AppConfig           *config.Config
	tokenFlag           *string
	commitsOptions      RunOptionsCommits
	exampleCommitsUsage = `  # Cloning a repository over HTTPS and replaying its workflow history
  gash commits --url https://github.com/owner/repo

  # Cloning over SSH with a specific key
  gash commits --url git@github.com:owner/repo.git --auth-type ssh-key --ssh-key ~/.ssh/id_ed25519

  # Replaying an existing checkout
  gash commits --path /path/to/checkout`
)

var CommitsCmd = &cobra.Command{
	Use:                   "commits {--url/-u URL | --path/-p PATH} [--auth-type/-a AUTH_TYPE] [--ssh-key/-k PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleCommitsUsage,
	Short:                 "Replays the detectors over every workflow change in a repository history",
	Long: `Replays the detectors over every workflow change in a repository history.

Writes one dataset row per changed workflow file to <output>/database/gash_<repo>.csv and archives
the before/after texts under <output>/scripts/<repo>.`,
	RunE: runCommitsCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, token *string) {
	AppConfig = cfg
	tokenFlag = token
}

// runCommitsCommand executes the commits command.
func runCommitsCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-commits")

	if err := validateCommitsArgs(&commitsOptions, args); err != nil {
		logger.Error("invalid commits arguments", "error", err)
		return err
	}
	applyGitOverrides(AppConfig, &commitsOptions)

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

	var summary replay.Summary
	if commitsOptions.URL != "" {
		summary, err = s.ReplayURL(ctx, commitsOptions.URL)
	} else {
		summary, err = s.ReplayLocal(ctx, commitsOptions.Path)
	}
	if err != nil {
		logger.Error("commits command failed", "error", err)
		return err
	}

	printSummary(cmd, summary)
	logger.Info("commits command completed successfully", "session", summary.SessionID)
	return nil
}

func printSummary(cmd *cobra.Command, summary replay.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d commits, %d analyzed, %d archived, %d skipped\n",
		summary.SessionID, summary.Commits, summary.Analyzed, summary.Archived, summary.Skipped)
}

func init() {
	CommitsCmd.Flags().StringVarP(&commitsOptions.URL, "url", "u", "", "URL of the GitHub repository to clone and replay.")
	CommitsCmd.Flags().StringVarP(&commitsOptions.Path, "path", "p", "", "Path to an existing local checkout to replay.")
	CommitsCmd.Flags().StringVarP(&commitsOptions.AuthType, "auth-type", "a", "", "Type of git authentication (e.g., http, ssh-key, ssh-agent, none). Overrides git_client.auth_type.")
	CommitsCmd.Flags().StringVarP(&commitsOptions.SSHKey, "ssh-key", "k", "", "Path to an SSH key. Overrides git_client.ssh_key.")
	CommitsCmd.Flags().BoolP("help", "h", false, "Show help for the commits command.")
}
