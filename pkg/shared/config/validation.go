package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gash-io/gash/pkg/shared/files"
)

var validLogLevels = []string{"", "TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

var validGitAuthTypes = []string{"", "none", "http", "ssh-key", "ssh-agent"}

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateLoggerConfig(&cfg.Logger); err != nil {
		return fmt.Errorf("YAML global config: logger directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGitConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	if err := ValidateGitHubConfig(&cfg.GitHub); err != nil {
		return fmt.Errorf("YAML global config: github directive is invalid: %w", err)
	}
	if err := ValidateDetectorsConfig(&cfg.Detectors); err != nil {
		return fmt.Errorf("YAML global config: detectors directive is invalid: %w", err)
	}
	if err := ValidateMiningConfig(&cfg.Mining); err != nil {
		return fmt.Errorf("YAML global config: mining directive is invalid: %w", err)
	}
	if err := updateOutputFolder(cfg); err != nil {
		return fmt.Errorf("YAML global config: output directive is invalid: %w", err)
	}
	return nil
}

// ValidateLoggerConfig checks the logger level name.
func ValidateLoggerConfig(loggerConfig *Logger) error {
	if loggerConfig == nil {
		return fmt.Errorf("logger configuration is nil")
	}
	if !contains(validLogLevels, strings.ToUpper(loggerConfig.Level)) {
		return fmt.Errorf("unknown log level %q", loggerConfig.Level)
	}
	return nil
}

// ValidateGitConfig checks if the Git configurations have valid values.
func ValidateGitConfig(gitConfig *GitClient) error {
	if gitConfig == nil {
		return fmt.Errorf("git configuration is nil")
	}
	if err := validateDuration(gitConfig.Timeout, "timeout", 1*time.Hour); err != nil {
		return err
	}
	if !contains(validGitAuthTypes, gitConfig.AuthType) {
		return fmt.Errorf("unknown auth_type %q", gitConfig.AuthType)
	}
	if gitConfig.AuthType == "ssh-key" && gitConfig.SSHKey == "" {
		return fmt.Errorf("ssh_key must be set when auth_type is 'ssh-key'")
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	return validateProxy(&httpConfig.Proxy)
}

// ValidateGitHubConfig checks the platform client settings.
func ValidateGitHubConfig(ghConfig *GitHub) error {
	if ghConfig == nil {
		return fmt.Errorf("github configuration is nil")
	}
	if ghConfig.APIURL != "" {
		u, err := url.Parse(ghConfig.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api_url %q is not an absolute URL", ghConfig.APIURL)
		}
		if !strings.HasSuffix(ghConfig.APIURL, "/") {
			ghConfig.APIURL += "/"
		}
	}
	if ghConfig.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative: %v", ghConfig.RequestsPerSecond)
	}
	return validateDuration(ghConfig.CacheTTL, "cache_ttl", 24*time.Hour)
}

// ValidateDetectorsConfig checks the detector thresholds.
func ValidateDetectorsConfig(detectorsConfig *Detectors) error {
	if detectorsConfig == nil {
		return fmt.Errorf("detectors configuration is nil")
	}
	if detectorsConfig.ReplicaThreshold < 0 || detectorsConfig.ReplicaThreshold == 1 {
		return fmt.Errorf("replica_threshold must be at least 2: %d", detectorsConfig.ReplicaThreshold)
	}
	if detectorsConfig.MaxGlobalVars < 0 {
		return fmt.Errorf("max_global_vars cannot be negative: %d", detectorsConfig.MaxGlobalVars)
	}
	return nil
}

// ValidateMiningConfig checks the repository discovery settings.
func ValidateMiningConfig(miningConfig *Mining) error {
	if miningConfig == nil {
		return fmt.Errorf("mining configuration is nil")
	}
	if miningConfig.Workers < 0 || miningConfig.Workers > 100 {
		return fmt.Errorf("workers must be between 0 and 100: %d", miningConfig.Workers)
	}
	// the search API serves at most 1000 results
	if miningConfig.MaxPages < 0 || miningConfig.MaxPages > 10 {
		return fmt.Errorf("max_pages must be between 0 and 10: %d", miningConfig.MaxPages)
	}
	if miningConfig.PerPage < 0 || miningConfig.PerPage > 100 {
		return fmt.Errorf("per_page must be between 0 and 100: %d", miningConfig.PerPage)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}
	return validatePort(proxy.Port)
}

// validateHost checks if the host part of the proxy configuration is valid.
// It ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// updateOutputFolder resolves the output folder from GASH_OUTPUT_FOLDER or the config and expands it.
func updateOutputFolder(cfg *Config) error {
	if envValue := os.Getenv("GASH_OUTPUT_FOLDER"); envValue != "" {
		cfg.Output.Folder = envValue
	}
	if cfg.Output.Folder == "" {
		return nil
	}

	expanded, err := files.ExpandPath(cfg.Output.Folder)
	if err != nil {
		return fmt.Errorf("failed to expand output folder %q: %w", cfg.Output.Folder, err)
	}
	cfg.Output.Folder = expanded
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
