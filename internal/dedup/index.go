package dedup

import (
	"sort"
	"strings"

	"github.com/posix4e/ContactDedup/internal/similarity"
)

// candidateIndex holds the three inverted indexes built once per detection
// pass. Keys map to record positions in the input slice, so candidate sets
// come back in input order and grouping stays deterministic.
//
// This is what bounds comparison work to index-colliding pairs instead of
// all O(n²) pairs.
type candidateIndex struct {
	phoneSuffix map[string][]int
	email       map[string][]int
	name        map[string][]int
}

func buildIndex(views []*NormalizedView) *candidateIndex {
	idx := &candidateIndex{
		phoneSuffix: make(map[string][]int),
		email:       make(map[string][]int),
		name:        make(map[string][]int),
	}
	for pos, v := range views {
		for suffix := range v.PhoneSuffixes {
			idx.phoneSuffix[suffix] = append(idx.phoneSuffix[suffix], pos)
		}
		for email := range v.Emails {
			for _, key := range emailKeys(email) {
				idx.email[key] = append(idx.email[key], pos)
			}
		}
		for _, key := range nameKeys(v) {
			idx.name[key] = append(idx.name[key], pos)
		}
	}
	return idx
}

// candidatesFor returns the positions sharing at least one index key with
// the view, excluding the view's own position, in ascending input order.
func (idx *candidateIndex) candidatesFor(pos int, v *NormalizedView) []int {
	seen := make(map[int]struct{})
	collect := func(positions []int) {
		for _, p := range positions {
			if p != pos {
				seen[p] = struct{}{}
			}
		}
	}

	for suffix := range v.PhoneSuffixes {
		collect(idx.phoneSuffix[suffix])
	}
	for email := range v.Emails {
		for _, key := range emailKeys(email) {
			collect(idx.email[key])
		}
	}
	for _, key := range nameKeys(v) {
		collect(idx.name[key])
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// emailKeys returns the index keys of one normalized email: its local part
// and its full domain. Keys are namespaced so a local part can never
// collide with a domain.
func emailKeys(email string) []string {
	local, domain := email, ""
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local, domain = email[:at], email[at+1:]
	}
	keys := make([]string, 0, 2)
	if local != "" {
		keys = append(keys, "l:"+local)
	}
	if domain != "" {
		keys = append(keys, "d:"+domain)
	}
	return keys
}

// nameKeys returns the index keys of a view's name, only when it has both a
// first and a last name: a literal prefix key and a phonetic key. The
// phonetic key is what lets a single-typo first name ("Jonh") still collide
// with its correct spelling — a pure prefix key diverges at the typo.
func nameKeys(v *NormalizedView) []string {
	if !v.HasFullName {
		return nil
	}
	lastPrefix := prefix3(v.LastName)
	keys := []string{"p:" + prefix3(v.FirstName) + "|" + lastPrefix}
	if code := similarity.PhoneticCode(v.FirstName); code != "" {
		keys = append(keys, "s:"+code+"|"+lastPrefix)
	}
	return keys
}

func prefix3(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
