package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/talshachar/therabill/internal/normalize"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists the patient roster in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore creates a roster store backed by pgx.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Store{pool: pool}
}

const listPatientsSQL = `
	SELECT id, therapist_id, name, phone, session_price, billing_type,
	       parent_patient_id, commission_enabled, commission_type, commission_value
	FROM patients
	WHERE therapist_id = $1
	ORDER BY created_at, id
`

// List returns the therapist's roster in creation order. Creation
// order is load-bearing: it is the tie-break for duplicate-name
// matching.
func (s *Store) List(ctx context.Context, therapistID uuid.UUID) ([]Patient, error) {
	rows, err := s.pool.Query(ctx, listPatientsSQL, toPGUUID(therapistID))
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var (
			p               Patient
			id, tid, parent pgtype.UUID
			commissionType  pgtype.Text
			phone           pgtype.Text
		)
		if err := rows.Scan(&id, &tid, &p.Name, &phone, &p.SessionPrice, &p.BillingType,
			&parent, &p.CommissionEnabled, &commissionType, &p.CommissionValue); err != nil {
			return nil, fmt.Errorf("patients: scan: %w", err)
		}
		p.ID = fromPGUUID(id)
		p.TherapistID = fromPGUUID(tid)
		p.Phone = phone.String
		p.CommissionType = CommissionType(commissionType.String)
		if parent.Valid {
			pid := fromPGUUID(parent)
			p.ParentID = &pid
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: list rows: %w", err)
	}
	return out, nil
}

const upsertPatientSQL = `
	INSERT INTO patients (id, therapist_id, name, normalized_name, phone, session_price,
	                      billing_type, parent_patient_id, commission_enabled, commission_type, commission_value)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		normalized_name = EXCLUDED.normalized_name,
		phone = EXCLUDED.phone,
		session_price = EXCLUDED.session_price,
		billing_type = EXCLUDED.billing_type,
		parent_patient_id = EXCLUDED.parent_patient_id,
		commission_enabled = EXCLUDED.commission_enabled,
		commission_type = EXCLUDED.commission_type,
		commission_value = EXCLUDED.commission_value,
		updated_at = now()
`

// Upsert validates and persists one patient. A normalized-name
// collision with another patient of the same therapist is rejected
// with ErrDuplicateName; duplicate names would make event matching
// ambiguous.
func (s *Store) Upsert(ctx context.Context, p Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var parent pgtype.UUID
	if p.ParentID != nil {
		parent = toPGUUID(*p.ParentID)
	}
	_, err := s.pool.Exec(ctx, upsertPatientSQL,
		toPGUUID(p.ID), toPGUUID(p.TherapistID), p.Name, normalize.Normalize(p.Name),
		p.Phone, p.SessionPrice, string(p.BillingType), parent,
		p.CommissionEnabled, string(p.CommissionType), p.CommissionValue,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("patients: upsert: %w", err)
	}
	return nil
}

// Delete removes a patient row scoped to the therapist.
func (s *Store) Delete(ctx context.Context, therapistID, patientID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM patients WHERE therapist_id = $1 AND id = $2`,
		toPGUUID(therapistID), toPGUUID(patientID))
	if err != nil {
		return fmt.Errorf("patients: delete: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func toPGUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: [16]byte(id), Valid: true}
}

func fromPGUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}
