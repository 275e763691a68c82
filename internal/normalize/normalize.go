// Package normalize holds label canonicalization shared by the
// matching engine and the patient store. It lives below both so the
// store can compute normalized names without importing matching.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Hebrew pointing marks: cantillation (U+0591-U+05AF) and niqqud
// (U+05B0-U+05C7). Calendar titles often carry these even when the
// patient record does not.
const (
	hebrewMarksLo = '֑'
	hebrewMarksHi = 'ׇ'
)

// Normalize canonicalizes a free-text label into the matching key used
// across the billing engine. It is pure and total: empty input yields
// an empty string, and no input ever fails.
//
// Steps, in order: Unicode NFC normalization, trim, collapse internal
// whitespace to single spaces, lowercase, strip Hebrew pointing marks,
// collapse runs of repeated characters.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r >= hebrewMarksLo && r <= hebrewMarksHi {
			continue
		}
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
