package types

import (
	"fmt"
	"sort"
	"strings"
)

// MatchType classifies why a duplicate group was formed
type MatchType string

const (
	// MatchSameEmail means the records share a normalized email address.
	MatchSameEmail MatchType = "same email"

	// MatchSamePhone means the records share a full phone number or a
	// 7-digit phone suffix.
	MatchSamePhone MatchType = "same phone"

	// MatchSimilarName means both first and last names matched above the
	// name-similarity threshold.
	MatchSimilarName MatchType = "similar"
)

// IsValid checks if the match type value is valid
func (m MatchType) IsValid() bool {
	switch m {
	case MatchSameEmail, MatchSamePhone, MatchSimilarName:
		return true
	}
	return false
}

// Keys for DuplicateGroup.AuxScores. Auxiliary scores are display-only
// and never part of the match decision.
const (
	// AuxScoreCompany is the company-similarity score, present only when
	// it could be computed.
	AuxScoreCompany = "company"

	// AuxScoreWeighted is the configured field-weight blend of the group's
	// per-field scores.
	AuxScoreWeighted = "weighted"
)

// DuplicateGroup is a set of two or more records judged to represent the
// same entity. Groups are immutable once produced; a fresh detection pass
// produces a fresh set of groups with fresh IDs.
type DuplicateGroup struct {
	// ID is a transient identifier for this group within one detection
	// pass. Use Key() for anything that must survive a reload.
	ID string `json:"id"`

	// Records holds the group members in the order they were discovered.
	Records []*ContactRecord `json:"records"`

	// MatchType records the classification of the first matching pair.
	MatchType MatchType `json:"match_type"`

	// NameSimilarity is the name score of the first matching pair, in [0,1].
	// For exact email/phone matches it is display-only.
	NameSimilarity float64 `json:"name_similarity"`

	// AuxScores carries optional auxiliary scores (e.g. company similarity)
	// that never participate in the match decision.
	AuxScores map[string]float64 `json:"aux_scores,omitempty"`
}

// Validate checks if the group has valid values
func (g *DuplicateGroup) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id is required")
	}
	if len(g.Records) < 2 {
		return fmt.Errorf("group must have at least 2 records (got %d)", len(g.Records))
	}
	if !g.MatchType.IsValid() {
		return fmt.Errorf("invalid match type: %s", g.MatchType)
	}
	if g.NameSimilarity < 0.0 || g.NameSimilarity > 1.0 {
		return fmt.Errorf("name_similarity must be between 0.0 and 1.0 (got %.2f)", g.NameSimilarity)
	}
	seen := make(map[string]bool, len(g.Records))
	for i, rec := range g.Records {
		if rec == nil {
			return fmt.Errorf("record at index %d is nil", i)
		}
		if seen[rec.ID] {
			return fmt.Errorf("record %s appears twice in group", rec.ID)
		}
		seen[rec.ID] = true
	}
	return nil
}

// Score returns the group's overall similarity score: exact email and phone
// matches score 1.0, name-only matches score their name similarity.
func (g *DuplicateGroup) Score() float64 {
	switch g.MatchType {
	case MatchSameEmail, MatchSamePhone:
		return 1.0
	default:
		return g.NameSimilarity
	}
}

// Contains reports whether the group has a member with the given record ID.
func (g *DuplicateGroup) Contains(recordID string) bool {
	for _, rec := range g.Records {
		if rec.ID == recordID {
			return true
		}
	}
	return false
}

// Key returns a stable identity for the group derived from its members'
// external identifiers (falling back to in-memory IDs for records that have
// none). Dismissal tracking must persist this key, not ID: in-memory record
// IDs are regenerated every detection pass.
func (g *DuplicateGroup) Key() string {
	keys := make([]string, 0, len(g.Records))
	for _, rec := range g.Records {
		key := ""
		for _, kind := range SourceKinds() {
			if id, ok := rec.ExternalID(kind); ok && id != "" {
				key = string(kind) + ":" + id
				break
			}
		}
		if key == "" {
			key = "mem:" + rec.ID
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// Confidence is an ordinal display band for a continuous similarity score.
// It has no effect on grouping decisions.
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "very high"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
	ConfidenceVeryLow  Confidence = "very low"
)

// ConfidenceForScore maps a score in [0,1] to one of five ordinal bands.
func ConfidenceForScore(score float64) Confidence {
	switch {
	case score >= 0.95:
		return ConfidenceVeryHigh
	case score >= 0.85:
		return ConfidenceHigh
	case score >= 0.75:
		return ConfidenceMedium
	case score >= 0.65:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// AtLeast reports whether c is at or above the given band.
func (c Confidence) AtLeast(min Confidence) bool {
	return c.rank() >= min.rank()
}

func (c Confidence) rank() int {
	switch c {
	case ConfidenceVeryHigh:
		return 4
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}
