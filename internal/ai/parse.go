package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for cleaning up model output before JSON parsing.
var (
	// Matches ```json\n{...}\n```, ```{...}```, etc.
	codeFenceRegex = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	// Greedy object extraction for responses that wrap the JSON in prose.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// parseCompanyScore extracts a similarity score from a model response.
// Models occasionally wrap JSON in code fences or surrounding prose, so
// parsing falls back through progressively more forgiving strategies:
//
//  1. Direct JSON parse
//  2. Strip code fences and retry
//  3. Extract the first {...} span and retry
func parseCompanyScore(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty response")
	}

	candidates := []string{text}
	if match := codeFenceRegex.FindStringSubmatch(text); match != nil {
		candidates = append(candidates, strings.TrimSpace(match[1]))
	}
	if match := objectRegex.FindString(text); match != "" {
		candidates = append(candidates, match)
	}

	var lastErr error
	for _, candidate := range candidates {
		var parsed companyScoreResponse
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			lastErr = err
			continue
		}
		if parsed.Similarity < 0 || parsed.Similarity > 1 {
			return 0, fmt.Errorf("similarity %v out of range [0,1]", parsed.Similarity)
		}
		return parsed.Similarity, nil
	}
	return 0, fmt.Errorf("no parseable JSON in response: %w", lastErr)
}
