package dedup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.95, cfg.NameThreshold)
	assert.Equal(t, 50, cfg.ProgressInterval)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:     "threshold at zero",
			mutate:   func(c *Config) { c.NameThreshold = 0.0 },
			errorMsg: "name_threshold must be between",
		},
		{
			name:     "threshold at one",
			mutate:   func(c *Config) { c.NameThreshold = 1.0 },
			errorMsg: "name_threshold must be between",
		},
		{
			name:     "negative progress interval",
			mutate:   func(c *Config) { c.ProgressInterval = -1 },
			errorMsg: "progress_interval must be positive",
		},
		{
			name:     "weight above one",
			mutate:   func(c *Config) { c.Weights.Email = 1.2 },
			errorMsg: "email weight must be between",
		},
		{
			name:     "negative weight",
			mutate:   func(c *Config) { c.Weights.Company = -0.1 },
			errorMsg: "company weight must be between",
		},
		{
			name:     "all weights zero",
			mutate:   func(c *Config) { c.Weights = FieldWeights{} },
			errorMsg: "at least one field weight must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CONTACTDEDUP_NAME_THRESHOLD", "0.9")
		t.Setenv("CONTACTDEDUP_PROGRESS_INTERVAL", "100")
		t.Setenv("CONTACTDEDUP_WEIGHT_COMPANY", "0.05")

		cfg, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 0.9, cfg.NameThreshold)
		assert.Equal(t, 100, cfg.ProgressInterval)
		assert.Equal(t, 0.05, cfg.Weights.Company)
	})

	t.Run("unparseable value", func(t *testing.T) {
		t.Setenv("CONTACTDEDUP_NAME_THRESHOLD", "not-a-number")
		_, err := ConfigFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CONTACTDEDUP_NAME_THRESHOLD")
	})

	t.Run("invalid after parsing", func(t *testing.T) {
		t.Setenv("CONTACTDEDUP_NAME_THRESHOLD", "7.5")
		_, err := ConfigFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration from environment")
	})
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"NameThreshold: 0.95", "ProgressInterval: 50", "Email: 0.30"} {
		if !strings.Contains(s, want) {
			t.Errorf("Config.String() missing %q: %s", want, s)
		}
	}
}
