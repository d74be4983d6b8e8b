// Package ai provides the optional Anthropic-backed semantic capabilities
// of the dedup engine. Today that is one thing: semantic company-name
// similarity, used to refine a duplicate group's auxiliary company score
// beyond what string edit distance can see ("IBM" vs "International
// Business Machines").
//
// The capability is strictly optional. It never participates in match
// decisions, and every caller must treat an error as "score unavailable",
// not as a failure of the detection pass.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// ModelHaiku is the cost-efficient model used for short scoring calls.
const ModelHaiku = "claude-3-5-haiku-20241022"

// DefaultModel returns the scoring model, honoring the
// CONTACTDEDUP_AI_MODEL override.
func DefaultModel() string {
	if model := os.Getenv("CONTACTDEDUP_AI_MODEL"); model != "" {
		return model
	}
	return ModelHaiku
}

// CompanyMatcherConfig configures the semantic company matcher.
type CompanyMatcherConfig struct {
	// APIKey for the Anthropic API. Falls back to ANTHROPIC_API_KEY.
	APIKey string

	// Model to score with. Default: DefaultModel().
	Model string

	// RequestsPerSecond caps the API call rate. Default: 2.
	RequestsPerSecond float64

	// MaxRetries is the number of retry attempts after a failed call.
	// Default: 2.
	MaxRetries int
}

// CompanyMatcher scores company-name pairs with the Anthropic API.
// It satisfies the detector's CompanyMatcher capability interface.
type CompanyMatcher struct {
	client     *anthropic.Client
	model      string
	limiter    *rate.Limiter
	maxRetries int
}

// NewCompanyMatcher creates a rate-limited semantic company matcher.
// Returns an error if no API key is available.
func NewCompanyMatcher(cfg CompanyMatcherConfig) (*CompanyMatcher, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &CompanyMatcher{
		client:     &client,
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: maxRetries,
	}, nil
}

// companyScoreResponse is the JSON shape the model is asked to return.
type companyScoreResponse struct {
	Similarity float64 `json:"similarity"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// CompanySimilarity returns a semantic similarity in [0,1] for two
// organization names.
func (m *CompanyMatcher) CompanySimilarity(ctx context.Context, a, b string) (float64, error) {
	prompt := buildCompanyPrompt(a, b)

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		resp, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(m.model),
			MaxTokens: 256,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			lastErr = err
			continue
		}

		var responseText string
		for _, block := range resp.Content {
			if block.Type == "text" {
				responseText += block.Text
			}
		}

		score, err := parseCompanyScore(responseText)
		if err != nil {
			lastErr = err
			continue
		}
		return score, nil
	}
	return 0, fmt.Errorf("company similarity call failed after %d attempts: %w", m.maxRetries+1, lastErr)
}

func buildCompanyPrompt(a, b string) string {
	return fmt.Sprintf(`You are comparing two organization names from contact records.

Name A: %q
Name B: %q

Do these refer to the same organization? Consider abbreviations, legal
suffixes (Inc, LLC, GmbH), subsidiaries, and rebrandings.

Respond with ONLY a JSON object:
{"similarity": <0.0-1.0>, "reasoning": "<one sentence>"}

Use 1.0 for clearly the same organization, 0.0 for clearly unrelated.`, a, b)
}
