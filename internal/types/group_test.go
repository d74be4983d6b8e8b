package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGroup() *DuplicateGroup {
	return &DuplicateGroup{
		ID:             "group-1",
		Records:        []*ContactRecord{NewContactRecord(SourceDevice), NewContactRecord(SourceDevice)},
		MatchType:      MatchSimilarName,
		NameSimilarity: 0.97,
	}
}

func TestGroupValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*DuplicateGroup)
		errorMsg string
	}{
		{"valid", func(g *DuplicateGroup) {}, ""},
		{"missing id", func(g *DuplicateGroup) { g.ID = "" }, "id is required"},
		{"single record", func(g *DuplicateGroup) { g.Records = g.Records[:1] }, "at least 2 records"},
		{"bad match type", func(g *DuplicateGroup) { g.MatchType = "vibes" }, "invalid match type"},
		{"score out of range", func(g *DuplicateGroup) { g.NameSimilarity = 1.2 }, "name_similarity"},
		{"nil record", func(g *DuplicateGroup) { g.Records[1] = nil }, "is nil"},
		{
			"duplicate member",
			func(g *DuplicateGroup) { g.Records[1] = g.Records[0] },
			"appears twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := validGroup()
			tt.mutate(group)
			err := group.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestGroupScore(t *testing.T) {
	group := validGroup()

	group.MatchType = MatchSameEmail
	assert.Equal(t, 1.0, group.Score())

	group.MatchType = MatchSamePhone
	assert.Equal(t, 1.0, group.Score())

	group.MatchType = MatchSimilarName
	assert.Equal(t, 0.97, group.Score())
}

func TestGroupContains(t *testing.T) {
	group := validGroup()

	assert.True(t, group.Contains(group.Records[0].ID))
	assert.True(t, group.Contains(group.Records[1].ID))
	assert.False(t, group.Contains("stranger"))
}

func TestGroupKeyStableAcrossPasses(t *testing.T) {
	a := NewContactRecord(SourceDevice)
	a.SetExternalID(SourceDevice, "card-1")
	b := NewContactRecord(SourceCSV)
	b.SetExternalID(SourceCSV, "urn:li:99")

	group := &DuplicateGroup{ID: "g1", Records: []*ContactRecord{a, b}, MatchType: MatchSameEmail}
	key := group.Key()
	assert.Equal(t, "csv:urn:li:99|device:card-1", key)

	// A later pass sees the same contacts with fresh in-memory IDs and a
	// different discovery order; the key must not change.
	a2 := NewContactRecord(SourceDevice)
	a2.SetExternalID(SourceDevice, "card-1")
	b2 := NewContactRecord(SourceCSV)
	b2.SetExternalID(SourceCSV, "urn:li:99")

	rerun := &DuplicateGroup{ID: "g2", Records: []*ContactRecord{b2, a2}, MatchType: MatchSameEmail}
	assert.Equal(t, key, rerun.Key())
}

func TestGroupKeyFallsBackToMemoryID(t *testing.T) {
	a := NewContactRecord(SourceDevice)
	b := NewContactRecord(SourceDevice)

	group := &DuplicateGroup{ID: "g1", Records: []*ContactRecord{a, b}, MatchType: MatchSameEmail}
	assert.Contains(t, group.Key(), "mem:"+a.ID)
	assert.Contains(t, group.Key(), "mem:"+b.ID)
}

func TestConfidenceForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected Confidence
	}{
		{1.0, ConfidenceVeryHigh},
		{0.95, ConfidenceVeryHigh},
		{0.949, ConfidenceHigh},
		{0.85, ConfidenceHigh},
		{0.80, ConfidenceMedium},
		{0.75, ConfidenceMedium},
		{0.70, ConfidenceLow},
		{0.65, ConfidenceLow},
		{0.60, ConfidenceVeryLow},
		{0.0, ConfidenceVeryLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ConfidenceForScore(tt.score), "score %v", tt.score)
	}
}

func TestConfidenceAtLeast(t *testing.T) {
	assert.True(t, ConfidenceVeryHigh.AtLeast(ConfidenceLow))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceHigh))
	assert.False(t, ConfidenceVeryLow.AtLeast(ConfidenceLow))
}

func TestMatchTypeIsValid(t *testing.T) {
	assert.True(t, MatchSameEmail.IsValid())
	assert.True(t, MatchSamePhone.IsValid())
	assert.True(t, MatchSimilarName.IsValid())
	assert.False(t, MatchType("vibes").IsValid())
}
