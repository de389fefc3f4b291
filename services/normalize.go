package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey turns free text into a stable lookup key: lowercase, accents
// stripped, punctuation replaced by spaces, whitespace collapsed. Idempotent.
func NormalizeKey(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))

	if out, _, err := transform.String(stripMarks, lower); err == nil {
		lower = out
	}

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
