package git

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/hashicorp/go-hclog"
	crssh "golang.org/x/crypto/ssh"

	"github.com/gash-io/gash/pkg/shared/config"
	"github.com/gash-io/gash/pkg/shared/files"
)

// Auth types accepted in git_client.auth_type.
const (
	AuthHTTP     = "http"
	AuthSSHKey   = "ssh-key"
	AuthSSHAgent = "ssh-agent"
	AuthNone     = "none"
)

// Client clones repositories for replay.
type Client struct {
	logger       hclog.Logger
	auth         transport.AuthMethod
	timeout      time.Duration
	globalConfig *config.Config
}

// Authenticator builds a transport auth method for one auth type.
type Authenticator interface {
	SetupAuth(cfg config.GitClient, token string, logger hclog.Logger) (transport.AuthMethod, error)
	ValidateConfig(cfg config.GitClient, token string) error
}

// SSHKeyAuthenticator authenticates with a private key file.
type SSHKeyAuthenticator struct{}

// SSHAgentAuthenticator authenticates through the running ssh-agent.
type SSHAgentAuthenticator struct{}

// HTTPAuthenticator authenticates with the platform token over HTTPS.
type HTTPAuthenticator struct{}

// NoAuthenticator clones public repositories anonymously.
type NoAuthenticator struct{}

// SetupAuth configures SSH key authentication.
func (s *SSHKeyAuthenticator) SetupAuth(cfg config.GitClient, _ string, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH key authentication")

	keyPath, err := files.ExpandPath(cfg.SSHKey)
	if err != nil {
		logger.Error("failed to expand SSH key path", "path", cfg.SSHKey, "error", err)
		return nil, err
	}

	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, cfg.SSHKeyPassword)
	if err != nil {
		logger.Error("failed to set up SSH key authentication", "error", err)
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(),
	}
	return auth, nil
}

// ValidateConfig requires a key path.
func (s *SSHKeyAuthenticator) ValidateConfig(cfg config.GitClient, _ string) error {
	if cfg.SSHKey == "" {
		return fmt.Errorf("ssh_key is required for ssh-key authentication")
	}
	return nil
}

// SetupAuth configures SSH agent authentication.
func (s *SSHAgentAuthenticator) SetupAuth(_ config.GitClient, _ string, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH agent authentication")

	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		logger.Error("failed to set up SSH agent authentication", "error", err)
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(),
	}
	return auth, nil
}

// ValidateConfig has nothing to check for the agent.
func (s *SSHAgentAuthenticator) ValidateConfig(config.GitClient, string) error {
	return nil
}

// SetupAuth configures token authentication. GitHub accepts any non-empty user name.
func (h *HTTPAuthenticator) SetupAuth(_ config.GitClient, token string, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up HTTP authentication")
	return &http.BasicAuth{Username: "x-access-token", Password: token}, nil
}

// ValidateConfig requires a token.
func (h *HTTPAuthenticator) ValidateConfig(_ config.GitClient, token string) error {
	if token == "" {
		return fmt.Errorf("token is required for http authentication")
	}
	return nil
}

// SetupAuth returns no auth method.
func (n *NoAuthenticator) SetupAuth(config.GitClient, string, hclog.Logger) (transport.AuthMethod, error) {
	return nil, nil
}

// ValidateConfig has nothing to check.
func (n *NoAuthenticator) ValidateConfig(config.GitClient, string) error {
	return nil
}

// getAuthenticator resolves the auth type. An empty type uses the token when one is set.
func getAuthenticator(authType, token string) (Authenticator, error) {
	switch authType {
	case AuthSSHKey:
		return &SSHKeyAuthenticator{}, nil
	case AuthSSHAgent:
		return &SSHAgentAuthenticator{}, nil
	case AuthHTTP:
		return &HTTPAuthenticator{}, nil
	case AuthNone:
		return &NoAuthenticator{}, nil
	case "":
		if token != "" {
			return &HTTPAuthenticator{}, nil
		}
		return &NoAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", authType)
	}
}

// New initializes a Git client from the global config and the platform token.
func New(logger hclog.Logger, globalConfig *config.Config, token string) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if globalConfig == nil {
		globalConfig = &config.Config{}
	}
	gitCfg := globalConfig.GitClient

	authenticator, err := getAuthenticator(gitCfg.AuthType, token)
	if err != nil {
		logger.Error("unsupported authentication type", "error", err)
		return nil, fmt.Errorf("unsupported authentication type: %w", err)
	}
	if err := authenticator.ValidateConfig(gitCfg, token); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	auth, err := authenticator.SetupAuth(gitCfg, token, logger)
	if err != nil {
		logger.Error("failed to set up Git authentication", "error", err)
		return nil, fmt.Errorf("failed to set up Git authentication: %w", err)
	}

	return &Client{
		logger:       logger,
		auth:         auth,
		timeout:      config.SetThen(gitCfg.Timeout, config.DefaultGitTimeout),
		globalConfig: globalConfig,
	}, nil
}
