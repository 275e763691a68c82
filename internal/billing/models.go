package billing

import (
	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/matching"
)

// EventAlias maps a literal calendar label (stored normalized) to the
// patient it bills under. Unique per therapist per event name.
type EventAlias struct {
	TherapistID uuid.UUID
	EventName   string
	PatientID   uuid.UUID
}

// IgnoredEventName suppresses "unmatched event" suggestions for a
// label the therapist has dismissed.
type IgnoredEventName struct {
	TherapistID uuid.UUID
	EventName   string
}

// SessionOverride is a per-event price exception. Keyed by event id,
// not patient: it applies to one specific occurrence.
type SessionOverride struct {
	TherapistID uuid.UUID
	EventID     string
	PatientID   uuid.UUID
	CustomPrice float64
}

// Overrides indexes custom prices by event id.
type Overrides map[string]float64

// OverrideMap builds the event-id price index from persisted rows.
func OverrideMap(rows []SessionOverride) Overrides {
	m := make(Overrides, len(rows))
	for _, o := range rows {
		m[o.EventID] = o.CustomPrice
	}
	return m
}

// AliasIndex builds the normalized-label index from persisted rows.
func AliasIndex(rows []EventAlias) matching.AliasMap {
	m := make(matching.AliasMap, len(rows))
	for _, a := range rows {
		m[matching.Normalize(a.EventName)] = a.PatientID
	}
	return m
}

// IgnoreSet builds the normalized ignored-label set.
func IgnoreSet(rows []IgnoredEventName) map[string]struct{} {
	m := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		m[matching.Normalize(row.EventName)] = struct{}{}
	}
	return m
}
