// Package merge combines the members of a duplicate group into a single
// record without discarding any field value.
//
// List-valued fields are unioned under each field's own normalization.
// Scalar fields keep the primary's value and log every differing secondary
// value as a MergeConflict; mismatched names fold into an alternate-names
// list on the nickname field. The merge is lossless up to explicit, logged
// conflicts: every value from every input record is either unioned in or
// recorded with full provenance.
package merge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/posix4e/ContactDedup/internal/types"
)

// ErrPrimaryNotInGroup is returned when the declared primary id is not a
// member of the group. Merging must fail loudly here: silently picking an
// arbitrary member would violate the merge contract.
var ErrPrimaryNotInGroup = errors.New("primary record is not a member of the group")

// Engine merges duplicate groups. It holds no shared mutable state; merges
// of disjoint groups may run concurrently. Callers must serialize merges
// over overlapping record ids (see Coordinator).
type Engine struct {
	now func() time.Time
}

// NewEngine returns a merge engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock returns a merge engine with an injected clock,
// for deterministic timestamps.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Merge combines all group members into the record identified by
// primaryID. Deterministic given group member order: secondaries are folded
// in contact-by-contact in group order, skipping the primary.
//
// Input records are never mutated; the result is a new value.
func (e *Engine) Merge(group []*types.ContactRecord, primaryID string) (*types.ContactRecord, []MergeConflict, error) {
	if len(group) == 0 {
		return nil, nil, fmt.Errorf("group cannot be empty")
	}

	var primary *types.ContactRecord
	for _, rec := range group {
		if rec != nil && rec.ID == primaryID {
			primary = rec
			break
		}
	}
	if primary == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrPrimaryNotInGroup, primaryID)
	}

	merged := primary.Clone()
	conflicts := make([]MergeConflict, 0)
	var alternates []string

	for _, secondary := range group {
		if secondary == nil || secondary.ID == primaryID {
			continue
		}
		e.mergeAdditive(merged, secondary)
		conflicts = append(conflicts, e.mergeScalars(merged, secondary, &alternates)...)
	}

	foldAlternateNames(merged, alternates)

	if len(conflicts) > 0 {
		merged.Notes = appendHistoryBlock(merged.Notes, conflicts, e.now())
	}
	merged.UpdatedAt = e.now()

	return merged, conflicts, nil
}

// mergeAdditive unions every list-valued field of the secondary into the
// merged record. The Add* helpers compare under each field's own
// normalization and preserve first-seen order, so no value is ever dropped
// and no duplicate is ever introduced.
func (e *Engine) mergeAdditive(merged, secondary *types.ContactRecord) {
	for _, v := range secondary.Emails {
		merged.AddEmail(v)
	}
	for _, v := range secondary.Phones {
		merged.AddPhone(v)
	}
	for _, v := range secondary.Addresses {
		merged.AddAddress(v)
	}
	for _, v := range secondary.URLs {
		merged.AddURL(v)
	}
	for _, v := range secondary.SocialProfiles {
		merged.AddSocialProfile(v)
	}
	for _, v := range secondary.MessagingAddresses {
		merged.AddMessagingAddress(v)
	}
	for _, v := range secondary.Relationships {
		merged.AddRelationship(v)
	}
	for _, v := range secondary.Dates {
		merged.AddDate(v)
	}
}

// mergeScalars applies the adopt-or-log strategy to every scalar field and
// the special cases (notes, birthday, photo, external ids). Name and
// nickname mismatches are additionally folded into the alternates list so
// alternate identities survive the merge.
func (e *Engine) mergeScalars(merged, secondary *types.ContactRecord, alternates *[]string) []MergeConflict {
	var conflicts []MergeConflict
	record := func(field, losing string) {
		conflicts = append(conflicts, MergeConflict{
			Field:          field,
			LosingValue:    losing,
			SourceRecordID: secondary.ID,
			SourceLabel:    secondary.DisplayName(),
		})
	}

	nameConflict := false
	scalars := []struct {
		field string
		dst   *string
		src   string
	}{
		{"first_name", &merged.FirstName, secondary.FirstName},
		{"middle_name", &merged.MiddleName, secondary.MiddleName},
		{"last_name", &merged.LastName, secondary.LastName},
		{"nickname", &merged.Nickname, secondary.Nickname},
		{"company", &merged.Company, secondary.Company},
		{"job_title", &merged.JobTitle, secondary.JobTitle},
		{"department", &merged.Department, secondary.Department},
	}
	for _, s := range scalars {
		cur := strings.TrimSpace(*s.dst)
		val := strings.TrimSpace(s.src)
		switch {
		case val == "":
			// Nothing to adopt.
		case cur == "":
			*s.dst = val
		case !strings.EqualFold(cur, val):
			record(s.field, val)
			switch s.field {
			case "first_name", "last_name":
				nameConflict = true
			case "nickname":
				*alternates = appendAlternate(*alternates, val)
			}
		}
	}

	// A full-name mismatch preserves the secondary's whole name as an
	// alternate identity, not just the differing part.
	if nameConflict {
		secFull := strings.TrimSpace(strings.TrimSpace(secondary.FirstName) + " " + strings.TrimSpace(secondary.LastName))
		mergedFull := strings.TrimSpace(strings.TrimSpace(merged.FirstName) + " " + strings.TrimSpace(merged.LastName))
		if secFull != "" && !strings.EqualFold(secFull, mergedFull) {
			*alternates = appendAlternate(*alternates, secFull)
		}
	}

	// Notes always append to the log rather than silently dropping: the
	// losing note text is preserved verbatim, not just referenced.
	secNotes := strings.TrimSpace(secondary.Notes)
	switch {
	case secNotes == "":
	case strings.TrimSpace(merged.Notes) == "":
		merged.Notes = secNotes
	case !strings.EqualFold(strings.TrimSpace(merged.Notes), secNotes):
		record("notes", secNotes)
	}

	if secondary.Birthday != nil && !secondary.Birthday.IsZero() {
		if merged.Birthday == nil || merged.Birthday.IsZero() {
			bd := *secondary.Birthday
			merged.Birthday = &bd
		} else if *merged.Birthday != *secondary.Birthday {
			record("birthday", secondary.Birthday.String())
		}
	}

	if len(merged.Photo) == 0 && len(secondary.Photo) > 0 {
		merged.Photo = append([]byte(nil), secondary.Photo...)
	}

	for _, kind := range types.SourceKinds() {
		if _, ok := merged.ExternalID(kind); ok {
			continue
		}
		if id, ok := secondary.ExternalID(kind); ok && id != "" {
			merged.SetExternalID(kind, id)
		}
	}

	return conflicts
}

// appendAlternate adds a name to the alternates list unless an equal one
// (case-insensitive) is already present.
func appendAlternate(alternates []string, name string) []string {
	for _, existing := range alternates {
		if strings.EqualFold(existing, name) {
			return alternates
		}
	}
	return append(alternates, name)
}

// foldAlternateNames appends the collected alternate identities to the
// nickname field, comma-joined and de-duplicated against the nickname
// itself.
func foldAlternateNames(merged *types.ContactRecord, alternates []string) {
	kept := make([]string, 0, len(alternates))
	for _, name := range alternates {
		if !strings.EqualFold(name, strings.TrimSpace(merged.Nickname)) {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return
	}
	joined := strings.Join(kept, ", ")
	if strings.TrimSpace(merged.Nickname) == "" {
		merged.Nickname = joined
	} else {
		merged.Nickname = merged.Nickname + ", " + joined
	}
}

// appendHistoryBlock renders the conflict log into a human-readable block
// at the end of the notes field.
func appendHistoryBlock(notes string, conflicts []MergeConflict, at time.Time) string {
	var b strings.Builder
	if strings.TrimSpace(notes) != "" {
		b.WriteString(notes)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "--- merged %s ---\n", at.Format(time.RFC3339))
	for _, c := range conflicts {
		fmt.Fprintf(&b, "%s: kept existing value; %q from %s\n", c.Field, c.LosingValue, c.SourceLabel)
	}
	return strings.TrimRight(b.String(), "\n")
}
