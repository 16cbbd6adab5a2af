package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the global YAML configuration of gash.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	GitClient  GitClient  `yaml:"git_client"`
	GitHub     GitHub     `yaml:"github"`
	Output     Output     `yaml:"output"`
	Detectors  Detectors  `yaml:"detectors"`
	Mining     Mining     `yaml:"mining"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GitClient struct {
	Timeout        time.Duration `yaml:"timeout"`
	AuthType       string        `yaml:"auth_type"`
	SSHKey         string        `yaml:"ssh_key"`
	SSHKeyPassword string        `yaml:"ssh_key_password"`
}

// GitHub holds settings of the platform REST client.
type GitHub struct {
	Token             string        `yaml:"token"`
	APIURL            string        `yaml:"api_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

type Output struct {
	Folder string `yaml:"folder"`
}

// Detectors tunes the detector battery.
type Detectors struct {
	Enabled          []string `yaml:"enabled"`
	ReplicaThreshold int      `yaml:"replica_threshold"`
	MaxGlobalVars    int      `yaml:"max_global_vars"`
	Offline          *bool    `yaml:"offline"`
}

// Mining tunes repository discovery.
type Mining struct {
	Workers  int `yaml:"workers"`
	MaxPages int `yaml:"max_pages"`
	PerPage  int `yaml:"per_page"`
}

// ValidateConfigPath checks that path exists and is a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration file. A missing file yields an empty configuration
// so every setting falls back to its default.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}
	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the configuration file location, honouring GASH_CONFIG.
func DefaultConfigPath() string {
	if p := os.Getenv("GASH_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(GetGashHome(), "config.yml")
}

// GetGashHome returns the gash home folder, honouring GASH_HOME.
func GetGashHome() string {
	if home := os.Getenv("GASH_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".gash"
	}
	return filepath.Join(userHome, ".gash")
}

// GetOutputFolder returns the folder where datasets and archives are written.
func GetOutputFolder(cfg *Config) string {
	if cfg != nil && cfg.Output.Folder != "" {
		return cfg.Output.Folder
	}
	return filepath.Join(GetGashHome(), "generated")
}
