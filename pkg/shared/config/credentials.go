package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"

	"github.com/gash-io/gash/pkg/shared/files"
)

// Token sources, in resolution order.
const (
	TokenSourceFlag        = "flag"
	TokenSourceEnv         = "env"
	TokenSourceConfig      = "config"
	TokenSourceCredentials = "credentials"
)

// LookupFunc returns the value of an environment variable.
type LookupFunc func(string) (string, bool)

type credentials struct {
	GitHub struct {
		Token string `yaml:"token"`
	} `yaml:"github"`
}

// CredentialsPath returns the location of the persisted credentials file.
func CredentialsPath() string {
	return filepath.Join(GetGashHome(), "credentials.yml")
}

// ResolveToken picks the platform token from the flag, the environment, the config
// or the credentials file, in that order. An empty token means none was found.
func ResolveToken(flagValue string, cfg *Config, lookup LookupFunc, credentialsPath string) (string, string) {
	if flagValue != "" {
		return flagValue, TokenSourceFlag
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range []string{"GASH_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if v, ok := lookup(name); ok && v != "" {
			return v, TokenSourceEnv
		}
	}
	if cfg != nil && cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, TokenSourceConfig
	}
	if token, err := LoadToken(credentialsPath); err == nil && token != "" {
		return token, TokenSourceCredentials
	}
	return "", ""
}

// LoadToken reads the token persisted in the credentials file.
func LoadToken(path string) (string, error) {
	var c credentials
	if err := LoadYAML(path, &c); err != nil {
		return "", err
	}
	return c.GitHub.Token, nil
}

// SaveToken persists a validated token with owner-only permissions.
func SaveToken(path, token string) error {
	if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}

	var c credentials
	c.GitHub.Token = token
	data, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials %q: %w", path, err)
	}
	return nil
}
