package patients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// BillingType controls how a patient's sessions are rolled up.
type BillingType string

const (
	BillingMonthly     BillingType = "monthly"
	BillingPerSession  BillingType = "per_session"
	BillingInstitution BillingType = "institution"
)

// CommissionType selects how a referral commission is computed.
type CommissionType string

const (
	CommissionPercent CommissionType = "percent"
	CommissionFixed   CommissionType = "fixed"
)

var (
	// ErrDuplicateName is returned when a patient's normalized name
	// collides with an existing patient of the same therapist.
	ErrDuplicateName = errors.New("patients: normalized name already in use")

	// ErrNestedInstitution is returned when an institution patient is
	// given a parent of its own.
	ErrNestedInstitution = errors.New("patients: institution cannot have a parent")
)

// Patient is a single roster entry. A patient with ParentID set is a
// "child" whose sessions bill under the parent's line; a patient with
// BillingInstitution aggregates its children.
type Patient struct {
	ID                uuid.UUID
	TherapistID       uuid.UUID
	Name              string
	Phone             string
	SessionPrice      float64
	BillingType       BillingType
	ParentID          *uuid.UUID
	CommissionEnabled bool
	CommissionType    CommissionType
	CommissionValue   float64
}

// IsInstitution reports whether the patient aggregates child patients.
func (p Patient) IsInstitution() bool {
	return p.BillingType == BillingInstitution
}

// IsChild reports whether the patient bills under a parent.
func (p Patient) IsChild() bool {
	return p.ParentID != nil && *p.ParentID != uuid.Nil
}

// Validate rejects malformed records before they reach the core.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("patients: name is required")
	}
	switch p.BillingType {
	case BillingMonthly, BillingPerSession, BillingInstitution:
	default:
		return fmt.Errorf("patients: unknown billing type %q", p.BillingType)
	}
	if p.IsInstitution() && p.IsChild() {
		return ErrNestedInstitution
	}
	if p.CommissionEnabled {
		switch p.CommissionType {
		case CommissionPercent, CommissionFixed:
		default:
			return fmt.Errorf("patients: unknown commission type %q", p.CommissionType)
		}
		if p.CommissionValue < 0 {
			return errors.New("patients: commission value must be non-negative")
		}
	}
	if p.SessionPrice < 0 {
		return errors.New("patients: session price must be non-negative")
	}
	return nil
}
