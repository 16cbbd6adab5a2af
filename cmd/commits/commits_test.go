package commits

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/gash-io/gash/internal/replay"
	"github.com/gash-io/gash/pkg/shared/config"
)

func writeKey(t *testing.T, dir string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	path := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestValidateCommitsArgs(t *testing.T) {
	tmpDir := t.TempDir()
	keyPath := writeKey(t, tmpDir)
	badKey := filepath.Join(tmpDir, "bad_key")
	require.NoError(t, os.WriteFile(badKey, []byte("not a key"), 0600))

	tests := []struct {
		name    string
		options RunOptionsCommits
		args    []string
		wantErr string
	}{
		{name: "Valid URL", options: RunOptionsCommits{URL: "https://github.com/owner/repo"}},
		{name: "Valid path", options: RunOptionsCommits{Path: tmpDir}},
		{name: "Valid ssh key", options: RunOptionsCommits{URL: "git@github.com:owner/repo.git", AuthType: "ssh-key", SSHKey: keyPath}},
		{name: "Valid agent", options: RunOptionsCommits{URL: "https://github.com/owner/repo", AuthType: "ssh-agent"}},
		{
			name:    "Positional argument",
			options: RunOptionsCommits{URL: "https://github.com/owner/repo"},
			args:    []string{"https://github.com/owner/other"},
			wantErr: "positional arguments are not supported",
		},
		{name: "Nothing", options: RunOptionsCommits{}, wantErr: "either 'url' or 'path' flag must be specified"},
		{
			name:    "Both",
			options: RunOptionsCommits{URL: "https://github.com/owner/repo", Path: tmpDir},
			wantErr: "you cannot use 'url' and 'path' flags together",
		},
		{name: "Non GitHub URL", options: RunOptionsCommits{URL: "https://gitlab.com/owner/repo"}, wantErr: "provided URL is not valid"},
		{name: "Path is missing", options: RunOptionsCommits{Path: filepath.Join(tmpDir, "absent")}, wantErr: "failed to validate path"},
		{
			name:    "Unknown auth type",
			options: RunOptionsCommits{URL: "https://github.com/owner/repo", AuthType: "kerberos"},
			wantErr: "unknown auth-type: kerberos",
		},
		{
			name:    "ssh-key without key",
			options: RunOptionsCommits{URL: "https://github.com/owner/repo", AuthType: "ssh-key"},
			wantErr: "you must specify ssh-key with auth-type 'ssh-key'",
		},
		{
			name:    "ssh-key with garbage",
			options: RunOptionsCommits{URL: "https://github.com/owner/repo", AuthType: "ssh-key", SSHKey: badKey},
			wantErr: "invalid SSH key format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			err := validateCommitsArgs(&options, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyGitOverrides(t *testing.T) {
	cfg := &config.Config{GitClient: config.GitClient{AuthType: "http"}}
	applyGitOverrides(cfg, &RunOptionsCommits{})
	assert.Equal(t, "http", cfg.GitClient.AuthType)

	applyGitOverrides(cfg, &RunOptionsCommits{AuthType: "ssh-key", SSHKey: "/keys/id"})
	assert.Equal(t, "ssh-key", cfg.GitClient.AuthType)
	assert.Equal(t, "/keys/id", cfg.GitClient.SSHKey)

	applyGitOverrides(nil, &RunOptionsCommits{AuthType: "none"})
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	printSummary(cmd, replay.Summary{SessionID: "abc", Commits: 5, Analyzed: 4, Archived: 1})
	assert.Equal(t, "session abc: 5 commits, 4 analyzed, 1 archived, 0 skipped\n", buf.String())
}
