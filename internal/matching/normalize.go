package matching

import "github.com/talshachar/therabill/internal/normalize"

// Normalize canonicalizes a free-text label into the matching key used
// across the billing engine. It is pure and total: empty input yields
// an empty string, and no input ever fails.
//
// Steps, in order: Unicode NFC normalization, trim, collapse internal
// whitespace to single spaces, lowercase, strip Hebrew pointing marks,
// collapse runs of repeated characters.
//
// The implementation lives in internal/normalize so the patient store
// can use it without importing this package.
func Normalize(s string) string {
	return normalize.Normalize(s)
}
