package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/calendar"
	"github.com/talshachar/therabill/internal/matching"
	"github.com/talshachar/therabill/internal/patients"
)

// Session is one billable calendar event attributed to a patient.
type Session struct {
	EventID    string
	CalendarID string
	Date       time.Time
	Summary    string
	Price      float64
	// Paid mirrors the event's current paid color; the reconciler
	// folds it into persisted payment state.
	Paid bool
	// ChildPatientName is set when the session was matched against an
	// institution's child rather than the billed patient itself.
	ChildPatientName string
}

// PatientBilling is one patient's line in the month view.
type PatientBilling struct {
	Patient       patients.Patient
	Sessions      []Session
	Total         float64
	ChildPatients []patients.Patient
}

// UnmatchedLabel is an advisory "new patient / link existing" hint.
type UnmatchedLabel struct {
	Label string
	Count int
}

// MonthBilling is the assembled month view consumed by the UI and the
// payment reconciler.
type MonthBilling struct {
	Month    string
	Patients []PatientBilling
	// Unmatched groups events that matched nobody, by raw label.
	Unmatched []UnmatchedLabel
	// CalendarNameByPatient surfaces alias-matched raw labels that
	// differ from the canonical patient name, so a rename can be
	// propagated back to the calendar.
	CalendarNameByPatient map[uuid.UUID]string
}

type matchRef struct {
	lineIdx int
	member  patients.Patient
}

// AssembleMonth maps a month of calendar events onto per-patient
// billing lines. Cancelled events are excluded entirely; future-dated
// events never produce sessions; matching follows exact-then-alias
// priority with institutions expanding to their child set.
func AssembleMonth(
	month string,
	events []calendar.Event,
	roster []patients.Patient,
	aliases matching.AliasMap,
	overrides Overrides,
	ignored map[string]struct{},
	now time.Time,
) MonthBilling {
	part := patients.PartitionRoster(roster)

	lines := make([]PatientBilling, len(part.Standalone))
	byName := make(map[string]matchRef)
	byID := make(map[uuid.UUID]matchRef)
	for i, sp := range part.Standalone {
		children := part.Children(sp.ID)
		lines[i] = PatientBilling{Patient: sp, ChildPatients: children}
		for _, member := range part.MatchSet(sp) {
			ref := matchRef{lineIdx: i, member: member}
			key := matching.Normalize(member.Name)
			if _, taken := byName[key]; !taken && key != "" {
				byName[key] = ref
			}
			if _, taken := byID[member.ID]; !taken {
				byID[member.ID] = ref
			}
		}
	}

	out := MonthBilling{
		Month:                 month,
		CalendarNameByPatient: make(map[uuid.UUID]string),
	}
	unmatchedCounts := make(map[string]int)
	var unmatchedOrder []string

	for _, ev := range events {
		raw := strings.TrimSpace(ev.Summary)
		if raw == "" {
			continue
		}
		key := matching.Normalize(raw)
		if key == "" {
			continue
		}

		ref, matched := byName[key]
		viaAlias := false
		if !matched {
			if pid, ok := aliases[key]; ok {
				ref, matched = byID[pid]
				viaAlias = matched
			}
		}

		if !matched {
			if _, isAlias := aliases[key]; isAlias {
				continue
			}
			if _, ignore := ignored[key]; ignore {
				continue
			}
			if unmatchedCounts[raw] == 0 {
				unmatchedOrder = append(unmatchedOrder, raw)
			}
			unmatchedCounts[raw]++
			continue
		}

		if !ev.Status.Billable() || ev.Start.After(now) {
			continue
		}

		line := &lines[ref.lineIdx]
		defaultPrice := ref.member.SessionPrice
		if ref.member.ID != line.Patient.ID && defaultPrice == 0 {
			// Children without a price of their own inherit the
			// institution's rate.
			defaultPrice = line.Patient.SessionPrice
		}
		session := Session{
			EventID:    ev.ID,
			CalendarID: ev.CalendarID,
			Date:       ev.Start,
			Summary:    raw,
			Price:      PriceOf(ev.ID, defaultPrice, overrides),
			Paid:       ev.Status == calendar.StatusPaid,
		}
		if ref.member.ID != line.Patient.ID {
			session.ChildPatientName = ref.member.Name
		}
		line.Sessions = append(line.Sessions, session)
		line.Total += session.Price

		if viaAlias && raw != ref.member.Name {
			out.CalendarNameByPatient[ref.member.ID] = raw
		}
	}

	for _, line := range lines {
		if len(line.Sessions) == 0 {
			continue
		}
		out.Patients = append(out.Patients, line)
	}
	sort.SliceStable(out.Patients, func(i, j int) bool {
		return out.Patients[i].Total > out.Patients[j].Total
	})

	for _, label := range unmatchedOrder {
		out.Unmatched = append(out.Unmatched, UnmatchedLabel{Label: label, Count: unmatchedCounts[label]})
	}
	sort.SliceStable(out.Unmatched, func(i, j int) bool {
		return out.Unmatched[i].Count > out.Unmatched[j].Count
	})

	return out
}

// Line returns the billing line for a patient, if present.
func (m MonthBilling) Line(patientID uuid.UUID) (PatientBilling, bool) {
	for _, pb := range m.Patients {
		if pb.Patient.ID == patientID {
			return pb, true
		}
	}
	return PatientBilling{}, false
}
