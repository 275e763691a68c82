package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists monthly payment rows in Postgres.
type Store struct {
	pool PgxPool
}

// NewStore creates a payment store backed by pgx.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &Store{pool: pool}
}

const listForMonthSQL = `
	SELECT id, therapist_id, patient_id, month, amount, session_count,
	       paid, paid_at, paid_event_ids, status, notes
	FROM payments
	WHERE therapist_id = $1 AND month = $2
	ORDER BY created_at, id
`

// ListForMonth returns all payment rows for the therapist's month.
func (s *Store) ListForMonth(ctx context.Context, therapistID uuid.UUID, month string) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, listForMonthSQL, toPGUUID(therapistID), month)
	if err != nil {
		return nil, fmt.Errorf("payments: list for month: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var (
			p             Payment
			id, tid, pid  pgtype.UUID
			paidAt        pgtype.Timestamptz
			notes, status pgtype.Text
		)
		if err := rows.Scan(&id, &tid, &pid, &p.Month, &p.Amount, &p.SessionCount,
			&p.Paid, &paidAt, &p.PaidEventIDs, &status, &notes); err != nil {
			return nil, fmt.Errorf("payments: scan: %w", err)
		}
		p.ID = fromPGUUID(id)
		p.TherapistID = fromPGUUID(tid)
		p.PatientID = fromPGUUID(pid)
		p.Status = Status(status.String)
		p.Notes = notes.String
		if paidAt.Valid {
			t := paidAt.Time
			p.PaidAt = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payments: rows: %w", err)
	}
	return out, nil
}

const upsertPaymentSQL = `
	INSERT INTO payments (id, therapist_id, patient_id, month, amount, session_count,
	                      paid, paid_at, paid_event_ids, status, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (therapist_id, patient_id, month) DO UPDATE SET
		amount = EXCLUDED.amount,
		session_count = EXCLUDED.session_count,
		paid = EXCLUDED.paid,
		paid_at = EXCLUDED.paid_at,
		paid_event_ids = EXCLUDED.paid_event_ids,
		status = EXCLUDED.status,
		notes = EXCLUDED.notes,
		updated_at = now()
`

// Upsert creates or replaces the (therapist, patient, month) row.
func (s *Store) Upsert(ctx context.Context, p Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.PaidEventIDs == nil {
		p.PaidEventIDs = []string{}
	}
	var paidAt pgtype.Timestamptz
	if p.PaidAt != nil {
		paidAt = pgtype.Timestamptz{Time: p.PaidAt.UTC(), Valid: true}
	}
	_, err := s.pool.Exec(ctx, upsertPaymentSQL,
		toPGUUID(p.ID), toPGUUID(p.TherapistID), toPGUUID(p.PatientID), p.Month,
		p.Amount, p.SessionCount, p.Paid, paidAt, p.PaidEventIDs, string(p.Status), p.Notes,
	)
	if err != nil {
		return fmt.Errorf("payments: upsert: %w", err)
	}
	return nil
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
