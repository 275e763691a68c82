package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/talshachar/therabill/internal/matching"
)

// PgxPool is the subset of pgxpool.Pool the stores need; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AliasStore persists event-name aliases.
type AliasStore struct {
	pool PgxPool
}

func NewAliasStore(pool PgxPool) *AliasStore {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &AliasStore{pool: pool}
}

func (s *AliasStore) List(ctx context.Context, therapistID uuid.UUID) ([]EventAlias, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT therapist_id, event_name, patient_id FROM event_aliases WHERE therapist_id = $1 ORDER BY event_name`,
		toPGUUID(therapistID))
	if err != nil {
		return nil, fmt.Errorf("billing: list aliases: %w", err)
	}
	defer rows.Close()

	var out []EventAlias
	for rows.Next() {
		var (
			a        EventAlias
			tid, pid pgtype.UUID
		)
		if err := rows.Scan(&tid, &a.EventName, &pid); err != nil {
			return nil, fmt.Errorf("billing: scan alias: %w", err)
		}
		a.TherapistID = fromPGUUID(tid)
		a.PatientID = fromPGUUID(pid)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: alias rows: %w", err)
	}
	return out, nil
}

// Upsert stores the alias keyed by the normalized label, one target
// patient per label per therapist.
func (s *AliasStore) Upsert(ctx context.Context, a EventAlias) error {
	key := matching.Normalize(a.EventName)
	if key == "" {
		return fmt.Errorf("billing: alias needs a non-empty event name")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_aliases (therapist_id, event_name, patient_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (therapist_id, event_name) DO UPDATE SET patient_id = EXCLUDED.patient_id
	`, toPGUUID(a.TherapistID), key, toPGUUID(a.PatientID))
	if err != nil {
		return fmt.Errorf("billing: upsert alias: %w", err)
	}
	return nil
}

func (s *AliasStore) Delete(ctx context.Context, therapistID uuid.UUID, eventName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM event_aliases WHERE therapist_id = $1 AND event_name = $2`,
		toPGUUID(therapistID), matching.Normalize(eventName))
	if err != nil {
		return fmt.Errorf("billing: delete alias: %w", err)
	}
	return nil
}

// IgnoreStore persists dismissed unmatched labels.
type IgnoreStore struct {
	pool PgxPool
}

func NewIgnoreStore(pool PgxPool) *IgnoreStore {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &IgnoreStore{pool: pool}
}

func (s *IgnoreStore) List(ctx context.Context, therapistID uuid.UUID) ([]IgnoredEventName, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT therapist_id, event_name FROM ignored_event_names WHERE therapist_id = $1 ORDER BY event_name`,
		toPGUUID(therapistID))
	if err != nil {
		return nil, fmt.Errorf("billing: list ignores: %w", err)
	}
	defer rows.Close()

	var out []IgnoredEventName
	for rows.Next() {
		var (
			row IgnoredEventName
			tid pgtype.UUID
		)
		if err := rows.Scan(&tid, &row.EventName); err != nil {
			return nil, fmt.Errorf("billing: scan ignore: %w", err)
		}
		row.TherapistID = fromPGUUID(tid)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: ignore rows: %w", err)
	}
	return out, nil
}

func (s *IgnoreStore) Upsert(ctx context.Context, row IgnoredEventName) error {
	key := matching.Normalize(row.EventName)
	if key == "" {
		return fmt.Errorf("billing: ignore needs a non-empty event name")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ignored_event_names (therapist_id, event_name)
		VALUES ($1, $2)
		ON CONFLICT (therapist_id, event_name) DO NOTHING
	`, toPGUUID(row.TherapistID), key)
	if err != nil {
		return fmt.Errorf("billing: upsert ignore: %w", err)
	}
	return nil
}

func (s *IgnoreStore) Delete(ctx context.Context, therapistID uuid.UUID, eventName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM ignored_event_names WHERE therapist_id = $1 AND event_name = $2`,
		toPGUUID(therapistID), matching.Normalize(eventName))
	if err != nil {
		return fmt.Errorf("billing: delete ignore: %w", err)
	}
	return nil
}

// OverrideStore persists per-event price overrides.
type OverrideStore struct {
	pool PgxPool
}

func NewOverrideStore(pool PgxPool) *OverrideStore {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &OverrideStore{pool: pool}
}

func (s *OverrideStore) List(ctx context.Context, therapistID uuid.UUID) ([]SessionOverride, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT therapist_id, event_id, patient_id, custom_price FROM session_overrides WHERE therapist_id = $1`,
		toPGUUID(therapistID))
	if err != nil {
		return nil, fmt.Errorf("billing: list overrides: %w", err)
	}
	defer rows.Close()

	var out []SessionOverride
	for rows.Next() {
		var (
			o        SessionOverride
			tid, pid pgtype.UUID
		)
		if err := rows.Scan(&tid, &o.EventID, &pid, &o.CustomPrice); err != nil {
			return nil, fmt.Errorf("billing: scan override: %w", err)
		}
		o.TherapistID = fromPGUUID(tid)
		o.PatientID = fromPGUUID(pid)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: override rows: %w", err)
	}
	return out, nil
}

func (s *OverrideStore) Upsert(ctx context.Context, o SessionOverride) error {
	if o.EventID == "" {
		return fmt.Errorf("billing: override needs an event id")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_overrides (therapist_id, event_id, patient_id, custom_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (therapist_id, event_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			custom_price = EXCLUDED.custom_price
	`, toPGUUID(o.TherapistID), o.EventID, toPGUUID(o.PatientID), o.CustomPrice)
	if err != nil {
		return fmt.Errorf("billing: upsert override: %w", err)
	}
	return nil
}

func (s *OverrideStore) Delete(ctx context.Context, therapistID uuid.UUID, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM session_overrides WHERE therapist_id = $1 AND event_id = $2`,
		toPGUUID(therapistID), eventID)
	if err != nil {
		return fmt.Errorf("billing: delete override: %w", err)
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
