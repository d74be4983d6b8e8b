package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompanyScore(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		errorMsg string
	}{
		{
			name:     "plain JSON",
			input:    `{"similarity": 0.9, "reasoning": "same company"}`,
			expected: 0.9,
		},
		{
			name:     "JSON in code fence",
			input:    "```json\n{\"similarity\": 0.85}\n```",
			expected: 0.85,
		},
		{
			name:     "code fence without language tag",
			input:    "```\n{\"similarity\": 1.0}\n```",
			expected: 1.0,
		},
		{
			name:     "JSON wrapped in prose",
			input:    `Here is my assessment: {"similarity": 0.2, "reasoning": "unrelated"} Hope that helps.`,
			expected: 0.2,
		},
		{
			name:     "zero score",
			input:    `{"similarity": 0}`,
			expected: 0,
		},
		{
			name:     "empty response",
			input:    "   ",
			errorMsg: "empty response",
		},
		{
			name:     "no JSON at all",
			input:    "I cannot compare these names.",
			errorMsg: "no parseable JSON",
		},
		{
			name:     "score above range",
			input:    `{"similarity": 1.5}`,
			errorMsg: "out of range",
		},
		{
			name:     "score below range",
			input:    `{"similarity": -0.1}`,
			errorMsg: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := parseCompanyScore(tt.input)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

func TestBuildCompanyPrompt(t *testing.T) {
	prompt := buildCompanyPrompt("IBM", "International Business Machines")

	assert.Contains(t, prompt, `"IBM"`)
	assert.Contains(t, prompt, `"International Business Machines"`)
	assert.Contains(t, prompt, "similarity")
	assert.Contains(t, prompt, "JSON")
}

func TestNewCompanyMatcherRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewCompanyMatcher(CompanyMatcherConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNewCompanyMatcherDefaults(t *testing.T) {
	matcher, err := NewCompanyMatcher(CompanyMatcherConfig{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Equal(t, ModelHaiku, matcher.model)
	assert.Equal(t, 2, matcher.maxRetries)
	assert.NotNil(t, matcher.client)
	assert.NotNil(t, matcher.limiter)
}

func TestNewCompanyMatcherOverrides(t *testing.T) {
	matcher, err := NewCompanyMatcher(CompanyMatcherConfig{
		APIKey:            "test-key",
		Model:             "claude-sonnet-4-20250514",
		RequestsPerSecond: 5,
		MaxRetries:        4,
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", matcher.model)
	assert.Equal(t, 4, matcher.maxRetries)
}

func TestDefaultModel(t *testing.T) {
	t.Setenv("CONTACTDEDUP_AI_MODEL", "")
	assert.Equal(t, ModelHaiku, DefaultModel())

	t.Setenv("CONTACTDEDUP_AI_MODEL", "claude-sonnet-4-20250514")
	assert.Equal(t, "claude-sonnet-4-20250514", DefaultModel())
}

func TestPromptQuotesAdversarialNames(t *testing.T) {
	prompt := buildCompanyPrompt(`Acme "Quotes" Inc`, "")
	assert.True(t, strings.Contains(prompt, `\"Quotes\"`))
}
