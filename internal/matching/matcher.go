package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/patients"
)

// AliasMap maps a normalized calendar label to the patient it should
// bill under. Aliases are human-curated and persist until deleted.
type AliasMap map[string]uuid.UUID

// Match is the result of resolving an event label against a candidate
// set.
type Match struct {
	Patient  patients.Patient
	ViaAlias bool
}

// MatchLabel resolves an event label to a patient, in strict priority
// order: exact normalized name match (first candidate in roster order
// wins), then alias lookup. An alias only applies when no current exact
// match exists, so a stale alias can never shadow a renamed patient.
func MatchLabel(label string, candidates []patients.Patient, aliases AliasMap) (Match, bool) {
	key := Normalize(label)
	if key == "" {
		return Match{}, false
	}
	for _, p := range candidates {
		if Normalize(p.Name) == key {
			return Match{Patient: p}, true
		}
	}
	pid, ok := aliases[key]
	if !ok {
		return Match{}, false
	}
	for _, p := range candidates {
		if p.ID == pid {
			return Match{Patient: p, ViaAlias: true}, true
		}
	}
	return Match{}, false
}

// SuggestPartial returns permissive "did you mean" candidates for an
// unmatched label. Recall is favored over precision here: the result
// only feeds a suggestion list the therapist must approve, never
// authoritative billing.
func SuggestPartial(label string, roster []patients.Patient) []patients.Patient {
	key := Normalize(label)
	if utf8.RuneCountInString(key) < 2 {
		return nil
	}
	var out []patients.Patient
	for _, p := range roster {
		name := Normalize(p.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, key) || strings.Contains(key, name) || sharesToken(key, name) {
			out = append(out, p)
		}
	}
	return out
}

func sharesToken(a, b string) bool {
	bTokens := map[string]struct{}{}
	for _, t := range strings.Fields(b) {
		if utf8.RuneCountInString(t) >= 2 {
			bTokens[t] = struct{}{}
		}
	}
	for _, t := range strings.Fields(a) {
		if utf8.RuneCountInString(t) < 2 {
			continue
		}
		if _, ok := bTokens[t]; ok {
			return true
		}
	}
	return false
}
