package dirsnap

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Sanitize derives the filesystem-safe filename segment for a comment.
// The result is NFC-normalized and lowercased, keeps only Unicode letters,
// Unicode digits, '_', '-' and '.', has every other rune replaced by a single
// '-' per run, and carries no leading or trailing '-' or '.'.
// Sanitize is idempotent. An empty result is valid here; callers reject it.
func Sanitize(comment string) string {
	s := norm.NFC.String(comment)
	s = cases.Lower(language.Und).String(s)
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range s {
		if !keepRune(r) {
			r = '-'
		}
		if r == '-' {
			if dash {
				continue
			}
			dash = true
		} else {
			dash = false
		}
		b.WriteRune(r)
	}

	return strings.Trim(b.String(), "-.")
}

func keepRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}
