package patients

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpsertNormalizesName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := Patient{
		ID:           uuid.New(),
		TherapistID:  uuid.New(),
		Name:         "  דָּנִי   לוי ",
		SessionPrice: 300,
		BillingType:  BillingPerSession,
	}

	mock.ExpectExec("INSERT INTO patients").
		WithArgs(toPGUUID(p.ID), toPGUUID(p.TherapistID), p.Name, "דני לוי",
			"", 300.0, "per_session", pgxmock.AnyArg(), false, "", 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewStore(mock).Upsert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertDuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewStore(mock).Upsert(context.Background(), Patient{
		Name:        "דני לוי",
		BillingType: BillingMonthly,
	})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStoreUpsertRejectsInvalid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewStore(mock).Upsert(context.Background(), Patient{Name: "", BillingType: BillingMonthly})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tid := uuid.New()
	id := uuid.New()
	parentID := uuid.New()

	rows := pgxmock.NewRows([]string{
		"id", "therapist_id", "name", "phone", "session_price", "billing_type",
		"parent_patient_id", "commission_enabled", "commission_type", "commission_value",
	}).AddRow(
		toPGUUID(id), toPGUUID(tid), "תלמיד 1", pgtypeText("050-1234567"), 150.0, BillingMonthly,
		toPGUUID(parentID), true, pgtypeText("percent"), 10.0,
	)

	mock.ExpectQuery("SELECT id, therapist_id, name").
		WithArgs(toPGUUID(tid)).
		WillReturnRows(rows)

	got, err := NewStore(mock).List(context.Background(), tid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, tid, got[0].TherapistID)
	assert.Equal(t, "050-1234567", got[0].Phone)
	assert.Equal(t, CommissionPercent, got[0].CommissionType)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, parentID, *got[0].ParentID)
}

func TestStoreDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tid, pid := uuid.New(), uuid.New()
	mock.ExpectExec("DELETE FROM patients").
		WithArgs(toPGUUID(tid), toPGUUID(pid)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, NewStore(mock).Delete(context.Background(), tid, pid))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func pgtypeText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}
