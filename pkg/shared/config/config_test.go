package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `logger:
  level: debug
  json_format: true
http_client:
  retry_count: 3
  timeout: 20s
github:
  token: from-config
  cache_ttl: 30m
detectors:
  enabled: [HardCodedSecret, CodeReplica]
  replica_threshold: 3
mining:
  workers: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, GetBoolValue(cfg, "Logger.JSONFormat", false))
	assert.True(t, GetBoolValue(cfg, "Logger.DisableTime", true))
	assert.Equal(t, 3, cfg.HTTPClient.RetryCount)
	assert.Equal(t, 20*time.Second, cfg.HTTPClient.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.GitHub.CacheTTL)
	assert.Equal(t, []string{"HardCodedSecret", "CodeReplica"}, cfg.Detectors.Enabled)
	assert.Equal(t, 3, cfg.Detectors.ReplicaThreshold)
	assert.Equal(t, 5, cfg.Mining.Workers)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty config is valid", cfg: Config{}},
		{
			name:    "bad log level",
			cfg:     Config{Logger: Logger{Level: "loud"}},
			wantErr: "logger directive is invalid",
		},
		{
			name:    "retry count too high",
			cfg:     Config{HTTPClient: HTTPClient{RetryCount: 50}},
			wantErr: "http_client directive is invalid",
		},
		{
			name:    "negative git timeout",
			cfg:     Config{GitClient: GitClient{Timeout: -time.Second}},
			wantErr: "git_client directive is invalid",
		},
		{
			name:    "ssh-key without key",
			cfg:     Config{GitClient: GitClient{AuthType: "ssh-key"}},
			wantErr: "ssh_key must be set",
		},
		{
			name:    "relative api url",
			cfg:     Config{GitHub: GitHub{APIURL: "api.example.com"}},
			wantErr: "github directive is invalid",
		},
		{
			name:    "replica threshold of one",
			cfg:     Config{Detectors: Detectors{ReplicaThreshold: 1}},
			wantErr: "replica_threshold must be at least 2",
		},
		{
			name:    "too many pages",
			cfg:     Config{Mining: Mining{MaxPages: 11}},
			wantErr: "max_pages must be between 0 and 10",
		},
		{
			name:    "bad proxy port",
			cfg:     Config{HTTPClient: HTTPClient{Proxy: Proxy{Host: "proxy.local", Port: 70000}}},
			wantErr: "port must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := ValidateConfig(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateGitHubConfigAddsTrailingSlash(t *testing.T) {
	gh := GitHub{APIURL: "https://ghe.example.com/api/v3"}
	require.NoError(t, ValidateGitHubConfig(&gh))
	assert.Equal(t, "https://ghe.example.com/api/v3/", gh.APIURL)
}

func TestSetThen(t *testing.T) {
	assert.Equal(t, 5, SetThen(0, 5))
	assert.Equal(t, 3, SetThen(3, 5))
	assert.Equal(t, time.Minute, SetThen(time.Duration(0), time.Minute))
	assert.Equal(t, "x", SetThen("", "x"))
}

func TestResolveToken(t *testing.T) {
	dir := t.TempDir()
	credPath := filepath.Join(dir, "credentials.yml")
	noEnv := func(string) (string, bool) { return "", false }

	token, source := ResolveToken("", &Config{}, noEnv, credPath)
	assert.Empty(t, token)
	assert.Empty(t, source)

	require.NoError(t, SaveToken(credPath, "persisted"))
	info, err := os.Stat(credPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, source = ResolveToken("", &Config{}, noEnv, credPath)
	assert.Equal(t, "persisted", token)
	assert.Equal(t, TokenSourceCredentials, source)

	token, source = ResolveToken("", &Config{GitHub: GitHub{Token: "cfg"}}, noEnv, credPath)
	assert.Equal(t, "cfg", token)
	assert.Equal(t, TokenSourceConfig, source)

	env := func(name string) (string, bool) {
		if name == "GITHUB_TOKEN" {
			return "env", true
		}
		return "", false
	}
	token, source = ResolveToken("", &Config{GitHub: GitHub{Token: "cfg"}}, env, credPath)
	assert.Equal(t, "env", token)
	assert.Equal(t, TokenSourceEnv, source)

	token, source = ResolveToken("flag", nil, env, credPath)
	assert.Equal(t, "flag", token)
	assert.Equal(t, TokenSourceFlag, source)
}
