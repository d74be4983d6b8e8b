// Package config loads the CLI's YAML configuration file and applies
// environment overrides. Detection tuning itself (threshold, weights)
// lives in the dedup package; this package only carries it to and from
// the file format.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/posix4e/ContactDedup/internal/dedup"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = ".contactdedup/config.yaml"

// Config is the assembled runtime configuration.
type Config struct {
	// DatabasePath is the SQLite contact store location.
	DatabasePath string

	// Detection tunes the duplicate detector.
	Detection dedup.Config

	// AIEnabled turns on the Anthropic company-similarity capability.
	AIEnabled bool

	// AIModel overrides the scoring model when set.
	AIModel string

	// MergeConcurrency bounds parallel merges in `merge --all`.
	// Default: 4, Range: 1-64
	MergeConcurrency int
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:     ".contactdedup/contacts.db",
		Detection:        dedup.DefaultConfig(),
		AIEnabled:        false,
		MergeConcurrency: 4,
	}
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}
	if c.MergeConcurrency < 1 || c.MergeConcurrency > 64 {
		return fmt.Errorf("merge_concurrency must be between 1 and 64 (got %d)", c.MergeConcurrency)
	}
	return nil
}

// ConfigFile is the YAML shape of the configuration file. Zero values
// mean "not set"; unset fields keep their defaults.
type ConfigFile struct {
	DatabasePath string `yaml:"database_path,omitempty"`

	Detection struct {
		NameThreshold    float64 `yaml:"name_threshold,omitempty"`
		ProgressInterval int     `yaml:"progress_interval,omitempty"`
		Weights          struct {
			Name    float64 `yaml:"name,omitempty"`
			Email   float64 `yaml:"email,omitempty"`
			Phone   float64 `yaml:"phone,omitempty"`
			Company float64 `yaml:"company,omitempty"`
		} `yaml:"weights,omitempty"`
	} `yaml:"detection,omitempty"`

	AI struct {
		Enabled bool   `yaml:"enabled,omitempty"`
		Model   string `yaml:"model,omitempty"`
	} `yaml:"ai,omitempty"`

	MergeConcurrency int `yaml:"merge_concurrency,omitempty"`
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies CONTACTDEDUP_* environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No file: defaults plus environment.
	} else {
		var configFile ConfigFile
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		configFile.applyTo(config)
	}

	// Environment wins over the file.
	detection, err := dedup.ApplyEnv(config.Detection)
	if err != nil {
		return nil, err
	}
	config.Detection = detection
	if dbPath := os.Getenv("CONTACTDEDUP_DB"); dbPath != "" {
		config.DatabasePath = dbPath
	}
	if model := os.Getenv("CONTACTDEDUP_AI_MODEL"); model != "" {
		config.AIModel = model
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyTo overrides set fields onto the target config.
func (cf *ConfigFile) applyTo(config *Config) {
	if cf.DatabasePath != "" {
		config.DatabasePath = cf.DatabasePath
	}
	if cf.Detection.NameThreshold > 0 {
		config.Detection.NameThreshold = cf.Detection.NameThreshold
	}
	if cf.Detection.ProgressInterval > 0 {
		config.Detection.ProgressInterval = cf.Detection.ProgressInterval
	}
	if cf.Detection.Weights.Name > 0 {
		config.Detection.Weights.Name = cf.Detection.Weights.Name
	}
	if cf.Detection.Weights.Email > 0 {
		config.Detection.Weights.Email = cf.Detection.Weights.Email
	}
	if cf.Detection.Weights.Phone > 0 {
		config.Detection.Weights.Phone = cf.Detection.Weights.Phone
	}
	if cf.Detection.Weights.Company > 0 {
		config.Detection.Weights.Company = cf.Detection.Weights.Company
	}
	if cf.AI.Enabled {
		config.AIEnabled = true
	}
	if cf.AI.Model != "" {
		config.AIModel = cf.AI.Model
	}
	if cf.MergeConcurrency > 0 {
		config.MergeConcurrency = cf.MergeConcurrency
	}
}

// ExampleConfigFile returns an example configuration file content.
func ExampleConfigFile() string {
	return `# ContactDedup configuration

# SQLite contact store location
database_path: .contactdedup/contacts.db

detection:
  # Minimum per-component name similarity for a "similar" match (0-1)
  name_threshold: 0.95
  # Records between progress events
  progress_interval: 50
  weights:
    name: 0.4
    email: 0.3
    phone: 0.2
    company: 0.1

ai:
  # Semantic company-name scoring via the Anthropic API
  enabled: false
  # model: claude-3-5-haiku-20241022

# Parallel merges in "merge --all"
merge_concurrency: 4
`
}
