package similarity

import (
	"strings"
	"unicode"
)

// phoneticClasses maps consonants to one of six sound classes. Vowels and
// the letters h, w, y carry no class and are dropped from the encoding.
var phoneticClasses = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// PhoneticCode encodes a string to a fixed 4-character phonetic code: the
// first letter, then the sound classes of the remaining consonants with
// consecutive same-class letters collapsed, zero-padded or truncated to 4
// characters. Strings with no letters encode to "".
func PhoneticCode(s string) string {
	letters := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	// Unclassed letters are dropped outright, then adjacent same-class
	// letters collapse. The first letter's class participates in collapsing
	// so e.g. "pf" codes once.
	var code strings.Builder
	code.WriteRune(unicode.ToUpper(letters[0]))
	prev := phoneticClasses[letters[0]]
	for _, r := range letters[1:] {
		cls, ok := phoneticClasses[r]
		if !ok {
			continue
		}
		if cls == prev {
			continue
		}
		code.WriteByte(cls)
		prev = cls
		if code.Len() == 4 {
			break
		}
	}
	for code.Len() < 4 {
		code.WriteByte('0')
	}
	return code.String()
}

// PhoneticEquality reports whether two strings encode to the same phonetic
// code. Strings with no letters never phonetically equal anything.
func (e *Engine) PhoneticEquality(a, b string) bool {
	ca := PhoneticCode(a)
	if ca == "" {
		return false
	}
	return ca == PhoneticCode(b)
}
