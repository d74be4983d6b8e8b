// Package similarity provides the pure metric functions the duplicate
// detector scores record pairs with: edit-distance similarity, prefix- and
// phonetics-weighted name similarity, phone and email similarity, and
// company-name similarity.
//
// Every function is total (defined for all inputs, including empty strings)
// and symmetric where mathematically expected. The Engine carries no state;
// construct one wherever needed and pass it in explicitly rather than
// sharing a process-wide instance.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Engine exposes the similarity metrics. The zero value is ready to use.
type Engine struct{}

// NewEngine returns a ready-to-use similarity engine.
func NewEngine() *Engine {
	return &Engine{}
}

// EditSimilarity returns 1 - (edit distance / max(len(a), len(b))),
// case-insensitive. The distance is Damerau-Levenshtein: an adjacent
// transposition ("John"/"Jonh") costs one edit, not two, which is what
// makes single-typo names recoverable under the name threshold. Equal
// strings (including two empty strings) score 1.0; one empty and one
// non-empty string score 0.0.
func (e *Engine) EditSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	dist := matchr.DamerauLevenshtein(a, b)
	sim := 1.0 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0.0
	}
	return sim
}

// NameSimilarity is edit similarity plus a bonus of 0.1 per matched leading
// character, up to 4 characters, capped at 1.0. The result is always at
// least the plain edit similarity.
func (e *Engine) NameSimilarity(a, b string) float64 {
	sim := e.EditSimilarity(a, b)
	if sim >= 1.0 {
		return 1.0
	}
	la := []rune(strings.ToLower(strings.TrimSpace(a)))
	lb := []rune(strings.ToLower(strings.TrimSpace(b)))
	prefix := 0
	for prefix < len(la) && prefix < len(lb) && prefix < 4 && la[prefix] == lb[prefix] {
		prefix++
	}
	sim += 0.1 * float64(prefix)
	if sim > 1.0 {
		return 1.0
	}
	return sim
}

// PhoneSimilarity compares two phone numbers after stripping non-digits.
// Equal digit strings score 1.0. If one digit string is a suffix of the
// other (country-code vs local-format variants), the score is the length
// ratio shorter/longer. Otherwise it falls back to edit similarity over the
// digit strings.
func (e *Engine) PhoneSimilarity(a, b string) float64 {
	da := digitsOnly(a)
	db := digitsOnly(b)
	if da == db {
		return 1.0
	}
	if da == "" || db == "" {
		return 0.0
	}
	shorter, longer := da, db
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.HasSuffix(longer, shorter) {
		return float64(len(shorter)) / float64(len(longer))
	}
	return e.EditSimilarity(da, db)
}

// EmailSimilarity compares two email addresses. Case-insensitively equal
// addresses score 1.0. Otherwise the local parts contribute edit similarity
// weighted 0.7, and exactly matching domains add a 0.3 bonus, capped at 1.0.
func (e *Engine) EmailSimilarity(a, b string) float64 {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == lb {
		return 1.0
	}
	if la == "" || lb == "" {
		return 0.0
	}
	localA, domainA := splitEmail(la)
	localB, domainB := splitEmail(lb)
	sim := 0.7 * e.EditSimilarity(localA, localB)
	if domainA != "" && domainA == domainB {
		sim += 0.3
	}
	if sim > 1.0 {
		return 1.0
	}
	return sim
}

// CombinedNameSimilarity compares full names across two records, taking the
// better of the direct pairing and the swapped pairing (first against last)
// discounted by 0.9 — some cultures order the family name first. A phonetic
// bonus of 0.10 (direct) or 0.08 (swapped) is added when both name parts
// sound alike. The result is capped at 1.0.
func (e *Engine) CombinedNameSimilarity(first1, last1, first2, last2 string) float64 {
	direct := (e.NameSimilarity(first1, first2) + e.NameSimilarity(last1, last2)) / 2
	swapped := 0.9 * (e.NameSimilarity(first1, last2) + e.NameSimilarity(last1, first2)) / 2

	score := direct
	if swapped > score {
		score = swapped
	}

	if e.PhoneticEquality(first1, first2) && e.PhoneticEquality(last1, last2) {
		score += 0.10
	} else if e.PhoneticEquality(first1, last2) && e.PhoneticEquality(last1, first2) {
		score += 0.08
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// CompanySimilarity compares two organization names by edit similarity.
// Semantic refinement, when available, is layered on by the detector; this
// metric alone never blocks or decides a match.
func (e *Engine) CompanySimilarity(a, b string) float64 {
	return e.EditSimilarity(a, b)
}

// JaroWinkler exposes Jaro-Winkler similarity as an auxiliary, display-only
// metric for ranking near-misses.
func (e *Engine) JaroWinkler(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return matchr.JaroWinkler(a, b, false)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitEmail splits an address on the first "@". Addresses without one are
// treated as all local part with an empty domain.
func splitEmail(s string) (local, domain string) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return s, ""
}
