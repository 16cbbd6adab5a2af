package commits

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/gash-io/gash/internal/git"
	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/files"
)

// validateCommitsArgs validates the arguments provided to the commits command.
func validateCommitsArgs(options *RunOptionsCommits, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("positional arguments are not supported, use --url or --path")
	}

	if options.URL == "" && options.Path == "" {
		return fmt.Errorf("either 'url' or 'path' flag must be specified")
	}

	if options.URL != "" && options.Path != "" {
		return fmt.Errorf("you cannot use 'url' and 'path' flags together")
	}

	if options.URL != "" {
		if _, err := git.ParseLocator(options.URL); err != nil {
			return fmt.Errorf("provided URL is not valid: %w", err)
		}
	}

	if options.Path != "" {
		path, err := files.ExpandPath(options.Path)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", options.Path, err)
		}
		if err := files.ValidateDir(path); err != nil {
			return fmt.Errorf("failed to validate path %q: %w", path, err)
		}
		options.Path = path
	}

	return validateAuth(options.AuthType, options.SSHKey)
}

// validateAuth checks an optional auth-type override and the key it needs.
func validateAuth(authType, sshKey string) error {
	switch authType {
	case "", git.AuthNone, git.AuthHTTP, git.AuthSSHAgent:
		return nil
	case git.AuthSSHKey:
	default:
		return fmt.Errorf("unknown auth-type: %v", authType)
	}

	if sshKey == "" {
		return fmt.Errorf("you must specify ssh-key with auth-type 'ssh-key'")
	}
	expandedPath, err := files.ExpandPath(sshKey)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", sshKey, err)
	}
	if err := files.ValidatePath(expandedPath); err != nil {
		return fmt.Errorf("failed to validate path %q: %w", expandedPath, err)
	}
	keyData, err := os.ReadFile(expandedPath)
	if err != nil {
		return fmt.Errorf("failed to read SSH key file: %w", err)
	}
	if _, err := ssh.ParsePrivateKey(keyData); err != nil {
		if _, ok := err.(*ssh.PassphraseMissingError); !ok {
			return fmt.Errorf("invalid SSH key format: %w", err)
		}
	}
	return nil
}

// applyGitOverrides copies the auth flags over the git_client configuration.
func applyGitOverrides(cfg *config.Config, options *RunOptionsCommits) {
	if cfg == nil {
		return
	}
	if options.AuthType != "" {
		cfg.GitClient.AuthType = options.AuthType
	}
	if options.SSHKey != "" {
		if path, err := files.ExpandPath(options.SSHKey); err == nil {
			cfg.GitClient.SSHKey = path
		}
	}
}
