package analysis

import (
	"context"
	"errors"
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

// SettingsStore persists the therapist's VAT rate and global
// deductions.
type SettingsStore struct {
	pool           PgxPool
	defaultVATRate float64
}

// NewSettingsStore creates the settings store. defaultVATRate applies
// when the therapist never saved a rate.
func NewSettingsStore(pool PgxPool, defaultVATRate float64) *SettingsStore {
	if pool == nil {
		panic("analysis: pgx pool required")
	}
	return &SettingsStore{pool: pool, defaultVATRate: defaultVATRate}
}

// VATRate returns the therapist's VAT rate percent, falling back to
// the configured default.
func (s *SettingsStore) VATRate(ctx context.Context, therapistID uuid.UUID) (float64, error) {
	var rate float64
	err := s.pool.QueryRow(ctx,
		`SELECT vat_rate_percent FROM billing_settings WHERE therapist_id = $1`,
		toPGUUID(therapistID)).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaultVATRate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("analysis: load vat rate: %w", err)
	}
	return rate, nil
}

// SetVATRate saves the therapist's VAT rate percent.
func (s *SettingsStore) SetVATRate(ctx context.Context, therapistID uuid.UUID, rate float64) error {
	if rate < 0 {
		return errors.New("analysis: vat rate must be non-negative")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO billing_settings (therapist_id, vat_rate_percent)
		VALUES ($1, $2)
		ON CONFLICT (therapist_id) DO UPDATE SET
			vat_rate_percent = EXCLUDED.vat_rate_percent,
			updated_at = now()
	`, toPGUUID(therapistID), rate)
	if err != nil {
		return fmt.Errorf("analysis: save vat rate: %w", err)
	}
	return nil
}

// ListDeductions returns the therapist's global deductions.
func (s *SettingsStore) ListDeductions(ctx context.Context, therapistID uuid.UUID) ([]Deduction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, type, value, enabled FROM global_deductions WHERE therapist_id = $1 ORDER BY created_at, id`,
		toPGUUID(therapistID))
	if err != nil {
		return nil, fmt.Errorf("analysis: list deductions: %w", err)
	}
	defer rows.Close()

	var out []Deduction
	for rows.Next() {
		var (
			d  Deduction
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &d.Name, &d.Type, &d.Value, &d.Enabled); err != nil {
			return nil, fmt.Errorf("analysis: scan deduction: %w", err)
		}
		d.ID = fromPGUUID(id)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analysis: deduction rows: %w", err)
	}
	return out, nil
}

// UpsertDeduction creates or updates one global deduction.
func (s *SettingsStore) UpsertDeduction(ctx context.Context, therapistID uuid.UUID, d Deduction) error {
	switch d.Type {
	case DeductionPercent, DeductionFixed:
	default:
		return fmt.Errorf("analysis: unknown deduction type %q", d.Type)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO global_deductions (id, therapist_id, name, type, value, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			enabled = EXCLUDED.enabled,
			updated_at = now()
	`, toPGUUID(d.ID), toPGUUID(therapistID), d.Name, string(d.Type), d.Value, d.Enabled)
	if err != nil {
		return fmt.Errorf("analysis: upsert deduction: %w", err)
	}
	return nil
}

// DeleteDeduction removes one global deduction.
func (s *SettingsStore) DeleteDeduction(ctx context.Context, therapistID, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM global_deductions WHERE therapist_id = $1 AND id = $2`,
		toPGUUID(therapistID), toPGUUID(id))
	if err != nil {
		return fmt.Errorf("analysis: delete deduction: %w", err)
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
