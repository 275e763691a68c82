package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/calendar"
	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/pkg/logging"
)

// PatientSource is the roster dependency of the billing service.
type PatientSource interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]patients.Patient, error)
}

type aliasSource interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]EventAlias, error)
}

type ignoreSource interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]IgnoredEventName, error)
}

type overrideSource interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]SessionOverride, error)
}

type eventSource interface {
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]calendar.Event, error)
}

// Service assembles month billing views from the calendar and the
// persisted matching state.
type Service struct {
	patients   PatientSource
	aliases    aliasSource
	ignores    ignoreSource
	overrides  overrideSource
	events     eventSource
	calendarID string
	loc        *time.Location
	logger     *logging.Logger
	now        func() time.Time
}

// NewService wires the billing assembler to its collaborators.
func NewService(
	patientSource PatientSource,
	aliases aliasSource,
	ignores ignoreSource,
	overrides overrideSource,
	events eventSource,
	calendarID string,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		patients:   patientSource,
		aliases:    aliases,
		ignores:    ignores,
		overrides:  overrides,
		events:     events,
		calendarID: calendarID,
		loc:        time.Local,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source used for the future-event
// cutoff; tests use it.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithLocation sets the timezone month boundaries are computed in.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Month loads a month of events and matching state and assembles the
// billing view.
func (s *Service) Month(ctx context.Context, therapistID uuid.UUID, month string) (MonthBilling, error) {
	from, to, err := MonthRange(month, s.loc)
	if err != nil {
		return MonthBilling{}, err
	}
	events, err := s.events.ListEvents(ctx, s.calendarID, from, to)
	if err != nil {
		return MonthBilling{}, err
	}
	roster, err := s.patients.List(ctx, therapistID)
	if err != nil {
		return MonthBilling{}, err
	}
	aliasRows, err := s.aliases.List(ctx, therapistID)
	if err != nil {
		return MonthBilling{}, err
	}
	ignoreRows, err := s.ignores.List(ctx, therapistID)
	if err != nil {
		return MonthBilling{}, err
	}
	overrideRows, err := s.overrides.List(ctx, therapistID)
	if err != nil {
		return MonthBilling{}, err
	}

	view := AssembleMonth(month, events, roster,
		AliasIndex(aliasRows), OverrideMap(overrideRows), IgnoreSet(ignoreRows), s.now())
	s.logger.Debug("billing: month assembled",
		"month", month,
		"events", len(events),
		"patients", len(view.Patients),
		"unmatched", len(view.Unmatched),
	)
	return view, nil
}

// Roster returns the therapist's patient list; handlers use it for
// suggestion lookups.
func (s *Service) Roster(ctx context.Context, therapistID uuid.UUID) ([]patients.Patient, error) {
	return s.patients.List(ctx, therapistID)
}
