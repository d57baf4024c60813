// Package config handles configuration for mbrunner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Defaults
const (
	DefaultAppiumURL     = "http://127.0.0.1:4723"
	DefaultLocateTimeout = 25 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultStartAttempts = 3
	DefaultStartBackoff  = 2 * time.Second
	DefaultWorkers       = 4
	DefaultSessionPolicy = "reuse"
	DefaultOutputDir     = "reports"
	DefaultLogLevel      = "info"
)

// Config represents the runner configuration (mbrunner.yaml).
type Config struct {
	// Automation server
	AppiumURL    string                 `yaml:"appiumUrl"`
	Capabilities map[string]interface{} `yaml:"capabilities"` // Merged under batch capabilities

	// Timing
	LocateTimeout time.Duration `yaml:"locateTimeout"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	StartAttempts int           `yaml:"startAttempts"`
	StartBackoff  time.Duration `yaml:"startBackoff"`

	// Execution settings
	Workers       int                  `yaml:"workers"`       // Remote call worker pool size
	SessionPolicy string               `yaml:"sessionPolicy"` // reuse or per_case
	IncludeTags   []string             `yaml:"includeTags"`   // Tags to include
	ExcludeTags   []string             `yaml:"excludeTags"`   // Tags to exclude
	Env           map[string]string    `yaml:"env"`           // Extra batch parameters
	Artifacts     *core.ArtifactConfig `yaml:"artifacts"`

	// Output
	OutputDir string `yaml:"outputDir"`
	Database  string `yaml:"database"` // SQLite results file, empty for <home>/results.db
	LogFile   string `yaml:"logFile"`
	LogLevel  string `yaml:"logLevel"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.AppiumURL == "" {
		c.AppiumURL = DefaultAppiumURL
	}
	if c.LocateTimeout == 0 {
		c.LocateTimeout = DefaultLocateTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartAttempts == 0 {
		c.StartAttempts = DefaultStartAttempts
	}
	if c.StartBackoff == 0 {
		c.StartBackoff = DefaultStartBackoff
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.SessionPolicy == "" {
		c.SessionPolicy = DefaultSessionPolicy
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Database == "" {
		c.Database = GetDatabasePath()
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Artifacts == nil {
		a := core.DefaultArtifactConfig()
		c.Artifacts = &a
	}
}

// Validate rejects settings the runner cannot use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.SessionPolicy) {
	case "reuse", "per_case":
	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("sessionPolicy must be reuse or per_case, got %q", c.SessionPolicy))
	}
	if c.StartAttempts <= 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("startAttempts must be positive, got %d", c.StartAttempts))
	}
	if c.LocateTimeout <= 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("locateTimeout must be positive, got %s", c.LocateTimeout))
	}
	if c.PollInterval <= 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("pollInterval must be positive, got %s", c.PollInterval))
	}
	if c.StartBackoff < 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("startBackoff must not be negative, got %s", c.StartBackoff))
	}
	if c.Workers <= 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("workers must be positive, got %d", c.Workers))
	}
	return nil
}

// Load loads configuration from a file. Defaults are not applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadFromDir looks for mbrunner.yaml or mbrunner.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try mbrunner.yaml first
	configPath := filepath.Join(dir, "mbrunner.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "mbrunner.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return empty config
	return &Config{}, nil
}
