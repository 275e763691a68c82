package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talshachar/therabill/internal/calendar"
	"github.com/talshachar/therabill/internal/patients"
)

type fakeSources struct {
	roster    []patients.Patient
	aliases   []EventAlias
	ignores   []IgnoredEventName
	overrides []SessionOverride
	events    []calendar.Event

	listedFrom time.Time
	listedTo   time.Time
	eventsErr  error
}

func (f *fakeSources) List(_ context.Context, _ uuid.UUID) ([]patients.Patient, error) {
	return f.roster, nil
}

type aliasFake struct{ s *fakeSources }

func (a aliasFake) List(context.Context, uuid.UUID) ([]EventAlias, error) {
	return a.s.aliases, nil
}

type ignoreFake struct{ s *fakeSources }

func (i ignoreFake) List(context.Context, uuid.UUID) ([]IgnoredEventName, error) {
	return i.s.ignores, nil
}

type overrideFake struct{ s *fakeSources }

func (o overrideFake) List(context.Context, uuid.UUID) ([]SessionOverride, error) {
	return o.s.overrides, nil
}

func (f *fakeSources) ListEvents(_ context.Context, _ string, from, to time.Time) ([]calendar.Event, error) {
	f.listedFrom, f.listedTo = from, to
	return f.events, f.eventsErr
}

func newTestService(f *fakeSources) *Service {
	return NewService(f, aliasFake{f}, ignoreFake{f}, overrideFake{f}, f, "primary", nil).
		WithLocation(time.UTC).
		WithClock(func() time.Time { return time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC) })
}

func TestServiceMonth(t *testing.T) {
	dani := patients.Patient{ID: uuid.New(), Name: "דני לוי", SessionPrice: 300, BillingType: patients.BillingMonthly}
	f := &fakeSources{
		roster: []patients.Patient{dani},
		events: []calendar.Event{{
			ID: "e1", CalendarID: "primary", Summary: "דני לוי",
			Start:  time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
			Status: calendar.StatusPaid,
		}},
		overrides: []SessionOverride{{EventID: "e1", CustomPrice: 250}},
	}
	svc := newTestService(f)

	view, err := svc.Month(context.Background(), uuid.New(), "2026-03")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.listedFrom)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), f.listedTo)

	require.Len(t, view.Patients, 1)
	assert.Equal(t, 250.0, view.Patients[0].Total)
	assert.True(t, view.Patients[0].Sessions[0].Paid)
}

func TestServiceMonthInvalidKey(t *testing.T) {
	svc := newTestService(&fakeSources{})
	_, err := svc.Month(context.Background(), uuid.New(), "March 2026")
	assert.Error(t, err)
}

func TestServiceMonthEventsError(t *testing.T) {
	f := &fakeSources{eventsErr: errors.New("calendar unreachable")}
	svc := newTestService(f)
	_, err := svc.Month(context.Background(), uuid.New(), "2026-03")
	assert.Error(t, err)
}
