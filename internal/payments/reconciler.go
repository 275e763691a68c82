package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/talshachar/therabill/internal/billing"
	"github.com/talshachar/therabill/internal/calendar"
	"github.com/talshachar/therabill/internal/observability/metrics"
	"github.com/talshachar/therabill/pkg/logging"
)

var reconcilerTracer = otel.Tracer("therabill.internal.payments.reconciler")

// paymentStore is the persistence surface the reconciler needs.
type paymentStore interface {
	ListForMonth(ctx context.Context, therapistID uuid.UUID, month string) ([]Payment, error)
	Upsert(ctx context.Context, p Payment) error
}

// Mutation is one create-or-update the reconciler applied.
type Mutation struct {
	Payment Payment
	Created bool
}

// Reconciler folds the external paid-color signal into persisted
// payment rows. The local ledger is authoritative; calendar colors are
// a projection that is repainted best-effort.
type Reconciler struct {
	store     paymentStore
	provider  calendar.Provider
	repainter *calendar.Repainter
	cache     SyncCache
	logger    *logging.Logger
	metrics   *metrics.ReconcilerMetrics
	now       func() time.Time
}

// NewReconciler wires the reconciler. provider and repainter may be
// nil when repainting is unavailable; cache may be nil to disable the
// already-synced shortcut.
func NewReconciler(store paymentStore, provider calendar.Provider, repainter *calendar.Repainter, cache SyncCache, logger *logging.Logger, m *metrics.ReconcilerMetrics) *Reconciler {
	if store == nil {
		panic("payments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		store:     store,
		provider:  provider,
		repainter: repainter,
		cache:     cache,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock overrides the time source; tests use it for stable PaidAt.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// SyncMonth reconciles paid-colored sessions into payment rows. It is
// idempotent: event ids already recorded produce no mutation, and a
// month marked in the sync cache is skipped outright. Auto-sync only
// ever adds ids to the paid set; nothing is unmarked here.
func (r *Reconciler) SyncMonth(ctx context.Context, therapistID uuid.UUID, monthBilling billing.MonthBilling) ([]Mutation, error) {
	month := monthBilling.Month
	if !billing.ValidMonth(month) {
		return nil, fmt.Errorf("payments: invalid month key %q", month)
	}

	ctx, span := reconcilerTracer.Start(ctx, "payments.sync_month")
	span.SetAttributes(attribute.String("month", month))
	defer span.End()
	started := r.now()

	if r.cache != nil && r.cache.AlreadySynced(ctx, therapistID, month) {
		r.metrics.ObserveSyncRun("skipped", time.Since(started).Seconds())
		return nil, nil
	}

	existing, err := r.store.ListForMonth(ctx, therapistID, month)
	if err != nil {
		r.metrics.ObserveSyncRun("error", time.Since(started).Seconds())
		return nil, err
	}
	byPatient := make(map[uuid.UUID]Payment, len(existing))
	for _, p := range existing {
		byPatient[p.PatientID] = p
	}

	var mutations []Mutation
	for _, line := range monthBilling.Patients {
		row, exists := byPatient[line.Patient.ID]
		if exists && row.Settled() {
			// Refunded/canceled rows reflect an explicit user
			// decision; auto-sync leaves them alone.
			continue
		}

		var newlyPaid []string
		for _, session := range line.Sessions {
			if session.Paid && !row.HasEvent(session.EventID) {
				newlyPaid = append(newlyPaid, session.EventID)
			}
		}
		if len(newlyPaid) == 0 {
			continue
		}

		row.TherapistID = therapistID
		row.PatientID = line.Patient.ID
		row.Month = month
		row.PaidEventIDs = append(row.PaidEventIDs, newlyPaid...)
		recompute(&row, line, r.now())

		if err := r.store.Upsert(ctx, row); err != nil {
			r.metrics.ObserveSyncRun("error", time.Since(started).Seconds())
			return mutations, err
		}
		op := "update"
		if !exists {
			op = "create"
		}
		r.metrics.ObserveMutation(op)
		mutations = append(mutations, Mutation{Payment: row, Created: !exists})
	}

	if r.cache != nil {
		r.cache.MarkSynced(ctx, therapistID, month)
	}
	outcome := "clean"
	if len(mutations) > 0 {
		outcome = "mutated"
	}
	r.metrics.ObserveSyncRun(outcome, time.Since(started).Seconds())
	r.logger.Info("payments: month synced",
		"month", month,
		"mutations", len(mutations),
	)
	return mutations, nil
}

// TogglePaid flips one session's membership in the paid set,
// recomputes the row and requests a best-effort color repaint. Repaint
// failure is logged and never rolls back the persisted state.
func (r *Reconciler) TogglePaid(ctx context.Context, therapistID uuid.UUID, monthBilling billing.MonthBilling, patientID uuid.UUID, eventID string) (Payment, error) {
	line, ok := monthBilling.Line(patientID)
	if !ok {
		return Payment{}, fmt.Errorf("payments: patient %s has no sessions in %s", patientID, monthBilling.Month)
	}
	var session *billing.Session
	for i := range line.Sessions {
		if line.Sessions[i].EventID == eventID {
			session = &line.Sessions[i]
			break
		}
	}
	if session == nil {
		return Payment{}, fmt.Errorf("payments: event %s not in patient's sessions", eventID)
	}

	row, err := r.loadRow(ctx, therapistID, monthBilling.Month, patientID)
	if err != nil {
		return Payment{}, err
	}

	nowPaid := !row.HasEvent(eventID)
	if nowPaid {
		row.PaidEventIDs = append(row.PaidEventIDs, eventID)
	} else {
		row.PaidEventIDs = removeID(row.PaidEventIDs, eventID)
	}
	recompute(&row, line, r.now())

	if err := r.store.Upsert(ctx, row); err != nil {
		return Payment{}, err
	}
	r.invalidate(ctx, therapistID, monthBilling.Month)

	status := calendar.StatusNeedsBilling
	if nowPaid {
		status = calendar.StatusPaid
	}
	r.repaint(ctx, []calendar.RepaintRequest{{
		CalendarID: session.CalendarID,
		EventID:    eventID,
		Status:     status,
	}})
	return row, nil
}

// ToggleAllPaid marks every session paid in one mutation, or unmarks
// everything when the month is already fully covered.
func (r *Reconciler) ToggleAllPaid(ctx context.Context, therapistID uuid.UUID, monthBilling billing.MonthBilling, patientID uuid.UUID) (Payment, error) {
	line, ok := monthBilling.Line(patientID)
	if !ok {
		return Payment{}, fmt.Errorf("payments: patient %s has no sessions in %s", patientID, monthBilling.Month)
	}
	row, err := r.loadRow(ctx, therapistID, monthBilling.Month, patientID)
	if err != nil {
		return Payment{}, err
	}

	covered := true
	for _, s := range line.Sessions {
		if !row.HasEvent(s.EventID) {
			covered = false
			break
		}
	}

	status := calendar.StatusPaid
	if covered {
		row.PaidEventIDs = []string{}
		status = calendar.StatusNeedsBilling
	} else {
		row.PaidEventIDs = row.PaidEventIDs[:0]
		for _, s := range line.Sessions {
			row.PaidEventIDs = append(row.PaidEventIDs, s.EventID)
		}
	}
	recompute(&row, line, r.now())

	if err := r.store.Upsert(ctx, row); err != nil {
		return Payment{}, err
	}
	r.invalidate(ctx, therapistID, monthBilling.Month)

	reqs := make([]calendar.RepaintRequest, 0, len(line.Sessions))
	for _, s := range line.Sessions {
		reqs = append(reqs, calendar.RepaintRequest{
			CalendarID: s.CalendarID,
			EventID:    s.EventID,
			Status:     status,
		})
	}
	r.repaint(ctx, reqs)
	return row, nil
}

func (r *Reconciler) loadRow(ctx context.Context, therapistID uuid.UUID, month string, patientID uuid.UUID) (Payment, error) {
	existing, err := r.store.ListForMonth(ctx, therapistID, month)
	if err != nil {
		return Payment{}, err
	}
	for _, p := range existing {
		if p.PatientID == patientID {
			return p, nil
		}
	}
	return Payment{
		TherapistID: therapistID,
		PatientID:   patientID,
		Month:       month,
	}, nil
}

func (r *Reconciler) invalidate(ctx context.Context, therapistID uuid.UUID, month string) {
	if r.cache != nil {
		r.cache.Forget(ctx, therapistID, month)
	}
}

func (r *Reconciler) repaint(ctx context.Context, reqs []calendar.RepaintRequest) {
	if len(reqs) == 0 {
		return
	}
	if r.repainter == nil && r.provider == nil {
		return
	}
	repainter := r.repainter
	if repainter == nil {
		repainter = calendar.NewRepainter(r.provider, r.logger)
	}
	outcome := repainter.Repaint(ctx, reqs)
	r.metrics.ObserveRepaint(outcome.Succeeded, outcome.Failed)
	if outcome.Failed > 0 {
		r.logger.Warn("payments: some repaints failed",
			"succeeded", outcome.Succeeded,
			"failed", outcome.Failed,
		)
	}
}

// recompute derives amount, count and paid-state from the paid set and
// the month's priced sessions.
func recompute(row *Payment, line billing.PatientBilling, now time.Time) {
	paidSet := make(map[string]struct{}, len(row.PaidEventIDs))
	for _, id := range row.PaidEventIDs {
		paidSet[id] = struct{}{}
	}
	var amount float64
	for _, s := range line.Sessions {
		if _, ok := paidSet[s.EventID]; ok {
			amount += s.Price
		}
	}
	row.Amount = amount
	row.SessionCount = len(paidSet)
	row.Paid = len(line.Sessions) > 0 && coversAll(paidSet, line.Sessions)
	if row.Paid || row.SessionCount > 0 {
		t := now
		row.PaidAt = &t
	} else {
		row.PaidAt = nil
	}
	if row.Paid {
		row.Status = StatusPaid
	} else {
		row.Status = StatusPending
	}
}

func coversAll(paidSet map[string]struct{}, sessions []billing.Session) bool {
	for _, s := range sessions {
		if _, ok := paidSet[s.EventID]; !ok {
			return false
		}
	}
	return true
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
