package dedup

import (
	"strings"

	"github.com/posix4e/ContactDedup/internal/types"
)

// phoneSuffixLen is the number of trailing digits used for loose phone
// matching. Seven digits is the local-format length that survives
// country-code and area-code variation ("+1-555-123-4567" vs "123-4567").
const phoneSuffixLen = 7

// NormalizedView is the comparison form of one record: lowercased names,
// digit-only phone sets, lowercased email set. Views are built fresh at the
// start of every detection pass and discarded at the end; they are never
// persisted and never mutate the record they derive from.
type NormalizedView struct {
	RecordID string

	FirstName string
	LastName  string

	// HasFullName is true only when both first and last name are
	// non-empty. Records without a full name are never matched on name
	// alone.
	HasFullName bool

	// Phones holds digit-only phone numbers.
	Phones map[string]struct{}

	// PhoneSuffixes holds the trailing 7 digits of every phone with at
	// least 7 digits.
	PhoneSuffixes map[string]struct{}

	// Emails holds lowercased, trimmed email addresses.
	Emails map[string]struct{}

	Company string
}

// Normalize builds the comparison view of a record. It is a pure function:
// the record is read, never written.
func Normalize(rec *types.ContactRecord) *NormalizedView {
	v := &NormalizedView{
		RecordID:      rec.ID,
		FirstName:     strings.ToLower(strings.TrimSpace(rec.FirstName)),
		LastName:      strings.ToLower(strings.TrimSpace(rec.LastName)),
		Company:       strings.ToLower(strings.TrimSpace(rec.Company)),
		Phones:        make(map[string]struct{}, len(rec.Phones)),
		PhoneSuffixes: make(map[string]struct{}, len(rec.Phones)),
		Emails:        make(map[string]struct{}, len(rec.Emails)),
	}
	v.HasFullName = v.FirstName != "" && v.LastName != ""

	for _, phone := range rec.Phones {
		digits := types.PhoneDigits(phone)
		if digits == "" {
			continue
		}
		v.Phones[digits] = struct{}{}
		if len(digits) >= phoneSuffixLen {
			v.PhoneSuffixes[digits[len(digits)-phoneSuffixLen:]] = struct{}{}
		}
	}

	for _, email := range rec.Emails {
		if key := types.EmailKey(email); key != "" {
			v.Emails[key] = struct{}{}
		}
	}

	return v
}

// setsIntersect reports whether two string sets share at least one element.
func setsIntersect(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
