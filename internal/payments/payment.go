package payments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a monthly payment row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusRefunded Status = "refunded"
	StatusCanceled Status = "canceled"
)

// Payment is the persisted paid-state ledger for one patient in one
// month. Unique per (therapist, patient, month); created lazily and
// mutated in place, never deleted by the reconciler.
type Payment struct {
	ID           uuid.UUID
	TherapistID  uuid.UUID
	PatientID    uuid.UUID
	Month        string
	Amount       float64
	SessionCount int
	Paid         bool
	PaidAt       *time.Time
	PaidEventIDs []string
	Status       Status
	Notes        string
}

// HasEvent reports membership of an event id in the paid set.
func (p Payment) HasEvent(eventID string) bool {
	for _, id := range p.PaidEventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// Settled reports whether the row left the pending/paid lifecycle via
// an explicit user action; auto-sync leaves such rows alone.
func (p Payment) Settled() bool {
	return p.Status == StatusRefunded || p.Status == StatusCanceled
}
