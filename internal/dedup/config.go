package dedup

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the duplicate detector
type Config struct {
	// NameThreshold is the minimum prefix-weighted name similarity
	// (0.0-1.0, exclusive) that BOTH the first and the last name of a pair
	// must reach for a name-only match. Higher values = more conservative.
	// Default: 0.95, which separates a single typo ("John"/"Jonh") from a
	// different family member sharing a surname ("Mark"/"Margo" Harrison).
	NameThreshold float64

	// Weights is the field-weighting profile used for the auxiliary
	// weighted score attached to each group. It affects scoring only,
	// never indexing or the match decision.
	Weights FieldWeights

	// ProgressInterval reports progress every Nth record. Progress is
	// advisory and never affects correctness. Default: 50.
	ProgressInterval int
}

// FieldWeights blends per-field scores into the auxiliary weighted score.
type FieldWeights struct {
	Name    float64
	Email   float64
	Phone   float64
	Company float64
}

// DefaultConfig returns the default detector configuration
func DefaultConfig() Config {
	return Config{
		NameThreshold:    0.95,
		ProgressInterval: 50,
		Weights: FieldWeights{
			Name:    0.4,
			Email:   0.3,
			Phone:   0.2,
			Company: 0.1,
		},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.NameThreshold <= 0.0 || c.NameThreshold >= 1.0 {
		return fmt.Errorf("name_threshold must be between 0.0 and 1.0 exclusive (got %.2f)", c.NameThreshold)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be positive (got %d)", c.ProgressInterval)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"name", c.Weights.Name},
		{"email", c.Weights.Email},
		{"phone", c.Weights.Phone},
		{"company", c.Weights.Company},
	} {
		if w.value < 0.0 || w.value > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0 (got %.2f)", w.name, w.value)
		}
	}
	sum := c.Weights.Name + c.Weights.Email + c.Weights.Phone + c.Weights.Company
	if sum <= 0.0 {
		return fmt.Errorf("at least one field weight must be positive")
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{NameThreshold: %.2f, ProgressInterval: %d, Weights: {Name: %.2f, Email: %.2f, Phone: %.2f, Company: %.2f}}",
		c.NameThreshold, c.ProgressInterval,
		c.Weights.Name, c.Weights.Email, c.Weights.Phone, c.Weights.Company,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - CONTACTDEDUP_NAME_THRESHOLD: Name-only acceptance bound, 0-1 exclusive (default: 0.95)
//   - CONTACTDEDUP_PROGRESS_INTERVAL: Report progress every Nth record (default: 50)
//   - CONTACTDEDUP_WEIGHT_NAME: Name weight for the auxiliary score (default: 0.4)
//   - CONTACTDEDUP_WEIGHT_EMAIL: Email weight (default: 0.3)
//   - CONTACTDEDUP_WEIGHT_PHONE: Phone weight (default: 0.2)
//   - CONTACTDEDUP_WEIGHT_COMPANY: Company weight (default: 0.1)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv layers the CONTACTDEDUP_* environment variables onto an
// existing config, typically one loaded from a file. Unset variables
// leave the corresponding fields untouched.
func ApplyEnv(cfg Config) (Config, error) {
	if err := parseEnvFloat("CONTACTDEDUP_NAME_THRESHOLD", &cfg.NameThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("CONTACTDEDUP_PROGRESS_INTERVAL", &cfg.ProgressInterval); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("CONTACTDEDUP_WEIGHT_NAME", &cfg.Weights.Name); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("CONTACTDEDUP_WEIGHT_EMAIL", &cfg.Weights.Email); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("CONTACTDEDUP_WEIGHT_PHONE", &cfg.Weights.Phone); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("CONTACTDEDUP_WEIGHT_COMPANY", &cfg.Weights.Company); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
