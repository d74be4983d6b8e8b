package dedup

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/posix4e/ContactDedup/internal/similarity"
	"github.com/posix4e/ContactDedup/internal/types"
)

// suffixPhoneConfidence is the internal confidence assigned to pairs that
// share only a 7-digit phone suffix rather than a full number.
const suffixPhoneConfidence = 0.95

// namePrefilterRatio is the minimum shorter/longer length ratio of the
// first names (and of the last names) required before the edit metric runs.
// Pairs below it cannot reach the acceptance threshold anyway.
const namePrefilterRatio = 0.7

// ProgressEvent is an advisory snapshot of a running detection pass.
// Delivery is best-effort; events may be dropped when the receiver lags.
type ProgressEvent struct {
	Processed int
	Total     int
	Label     string
}

// CompanyMatcher is an optional capability for semantic company-name
// similarity beyond string edit distance. When it is absent or failing, the
// auxiliary company score falls back to the string metric alone; a match
// decision is never blocked on it.
type CompanyMatcher interface {
	CompanySimilarity(ctx context.Context, a, b string) (float64, error)
}

// Detector finds duplicate groups in an ordered snapshot of records.
// A Detector is safe to reuse across passes; it holds no per-pass state.
type Detector struct {
	engine  *similarity.Engine
	config  Config
	company CompanyMatcher
}

// Option configures a Detector.
type Option func(*Detector)

// WithCompanyMatcher attaches the optional semantic company-similarity
// capability.
func WithCompanyMatcher(m CompanyMatcher) Option {
	return func(d *Detector) {
		d.company = m
	}
}

// New creates a detector from a similarity engine and a validated config.
func New(engine *similarity.Engine, config Config, opts ...Option) (*Detector, error) {
	if engine == nil {
		return nil, fmt.Errorf("similarity engine cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	d := &Detector{engine: engine, config: config}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect runs one deduplication pass over an immutable snapshot of records.
//
// The result is deterministic given identical input order and identical
// configuration. Input order decides which pair's match type and score a
// group carries (the first match found), but not group membership.
//
// Progress events are sent to progress (which may be nil) without ever
// blocking the detection loop. Cancellation is honored at record
// granularity: a cancelled pass returns the groups formed so far together
// with the context error.
//
// Callers must pass a stable snapshot; Detect never mutates a record.
func (d *Detector) Detect(ctx context.Context, records []*types.ContactRecord, progress chan<- ProgressEvent) ([]*types.DuplicateGroup, error) {
	views := make([]*NormalizedView, len(records))
	for i, rec := range records {
		views[i] = Normalize(rec)
	}
	idx := buildIndex(views)

	grouped := make(map[int]bool)
	groups := make([]*types.DuplicateGroup, 0)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			log.Printf("[DEDUP] detection cancelled after %d/%d records (%d groups so far)", i, len(records), len(groups))
			return groups, err
		}
		if i > 0 && i%d.config.ProgressInterval == 0 {
			sendProgress(progress, ProgressEvent{Processed: i, Total: len(records), Label: rec.DisplayName()})
		}
		if grouped[i] {
			continue
		}

		members := []int{i}
		var first *pairMatch
		for _, c := range idx.candidatesFor(i, views[i]) {
			if grouped[c] {
				continue
			}
			match, ok := d.classifyPair(views[i], views[c])
			if !ok {
				continue
			}
			if first == nil {
				first = &match
			}
			members = append(members, c)
		}
		if len(members) < 2 {
			continue
		}

		group := &types.DuplicateGroup{
			ID:             uuid.New().String(),
			MatchType:      first.Type,
			NameSimilarity: first.NameScore,
			Records:        make([]*types.ContactRecord, 0, len(members)),
		}
		for _, m := range members {
			group.Records = append(group.Records, records[m])
			grouped[m] = true
		}
		d.attachAuxScores(ctx, group, first)
		groups = append(groups, group)
	}

	sendProgress(progress, ProgressEvent{Processed: len(records), Total: len(records)})

	// Descending overall score; discovery order breaks ties so identical
	// inputs always produce identical output.
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Score() > groups[b].Score()
	})
	return groups, nil
}

// pairMatch is the outcome of classifying one candidate pair.
type pairMatch struct {
	Type types.MatchType

	// NameScore is the group's displayed name similarity.
	NameScore float64

	// Confidence is the internal match confidence: 1.0 for exact email and
	// full-phone matches, 0.95 for suffix-phone matches, the averaged name
	// similarity for name matches.
	Confidence float64
}

// classifyPair applies the canonical classification policy in priority
// order: exact email, exact-or-suffix phone, then name similarity. The
// first rule that fires wins.
func (d *Detector) classifyPair(a, b *NormalizedView) (pairMatch, bool) {
	if setsIntersect(a.Emails, b.Emails) {
		return pairMatch{
			Type:       types.MatchSameEmail,
			NameScore:  displayNameScore(a, b),
			Confidence: 1.0,
		}, true
	}

	if setsIntersect(a.Phones, b.Phones) {
		return pairMatch{
			Type:       types.MatchSamePhone,
			NameScore:  displayNameScore(a, b),
			Confidence: 1.0,
		}, true
	}
	if setsIntersect(a.PhoneSuffixes, b.PhoneSuffixes) {
		return pairMatch{
			Type:       types.MatchSamePhone,
			NameScore:  displayNameScore(a, b),
			Confidence: suffixPhoneConfidence,
		}, true
	}

	// Name-only matching requires a full name on both sides: a record with
	// only a first name or only a company is never matched on name alone.
	if !a.HasFullName || !b.HasFullName {
		return pairMatch{}, false
	}
	if a.FirstName == b.FirstName && a.LastName == b.LastName {
		return pairMatch{Type: types.MatchSimilarName, NameScore: 1.0, Confidence: 1.0}, true
	}
	if lengthRatio(a.FirstName, b.FirstName) < namePrefilterRatio ||
		lengthRatio(a.LastName, b.LastName) < namePrefilterRatio {
		return pairMatch{}, false
	}
	simFirst := d.engine.NameSimilarity(a.FirstName, b.FirstName)
	simLast := d.engine.NameSimilarity(a.LastName, b.LastName)
	if simFirst < d.config.NameThreshold || simLast < d.config.NameThreshold {
		return pairMatch{}, false
	}
	score := (simFirst + simLast) / 2
	return pairMatch{Type: types.MatchSimilarName, NameScore: score, Confidence: score}, true
}

// displayNameScore is the name similarity recorded for email and phone
// matches: 1.0 when first and last names are identical case-insensitively,
// 0.5 otherwise. Display only; the match decision is already made.
func displayNameScore(a, b *NormalizedView) float64 {
	if a.FirstName == b.FirstName && a.LastName == b.LastName {
		return 1.0
	}
	return 0.5
}

// attachAuxScores computes the auxiliary scores of a confirmed group: the
// company similarity (when both lead members carry a company) and the
// weighted field blend. Neither influences group membership.
func (d *Detector) attachAuxScores(ctx context.Context, group *types.DuplicateGroup, first *pairMatch) {
	scores := make(map[string]float64, 2)

	companyScore, hasCompany := d.companyScore(ctx, group)
	if hasCompany {
		scores[types.AuxScoreCompany] = companyScore
	}

	w := d.config.Weights
	total := w.Name + w.Email + w.Phone + w.Company
	var emailComponent, phoneComponent float64
	switch first.Type {
	case types.MatchSameEmail:
		emailComponent = 1.0
	case types.MatchSamePhone:
		phoneComponent = first.Confidence
	}
	scores[types.AuxScoreWeighted] = (w.Name*first.NameScore +
		w.Email*emailComponent +
		w.Phone*phoneComponent +
		w.Company*companyScore) / total

	group.AuxScores = scores
}

// companyScore compares the companies of the first two group members: the
// string metric always, raised by the semantic capability when one is
// configured and succeeds.
func (d *Detector) companyScore(ctx context.Context, group *types.DuplicateGroup) (float64, bool) {
	companyA := strings.TrimSpace(group.Records[0].Company)
	companyB := strings.TrimSpace(group.Records[1].Company)
	if companyA == "" || companyB == "" {
		return 0, false
	}
	score := d.engine.CompanySimilarity(companyA, companyB)
	if d.company != nil {
		semantic, err := d.company.CompanySimilarity(ctx, companyA, companyB)
		if err != nil {
			log.Printf("[DEDUP] semantic company similarity unavailable: %v", err)
		} else if semantic > score {
			score = semantic
		}
	}
	return score, true
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la > lb {
		la, lb = lb, la
	}
	if lb == 0 {
		return 1.0
	}
	return float64(la) / float64(lb)
}

// sendProgress delivers a progress event without blocking. A nil channel or
// a full buffer simply drops the event.
func sendProgress(progress chan<- ProgressEvent, ev ProgressEvent) {
	if progress == nil {
		return
	}
	select {
	case progress <- ev:
	default:
	}
}
