package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/internal/payments"
)

type fakeSyncer struct {
	mutations []payments.Mutation
	toggled   payments.Payment
	lastAll   bool
	lastEvent string
}

func (f *fakeSyncer) SyncMonth(_ context.Context, _ uuid.UUID, view billing.MonthBilling) ([]payments.Mutation, error) {
	return f.mutations, nil
}

func (f *fakeSyncer) TogglePaid(_ context.Context, _ uuid.UUID, view billing.MonthBilling, patientID uuid.UUID, eventID string) (payments.Payment, error) {
	f.lastEvent = eventID
	f.toggled.PatientID = patientID
	f.toggled.Month = view.Month
	return f.toggled, nil
}

func (f *fakeSyncer) ToggleAllPaid(_ context.Context, _ uuid.UUID, view billing.MonthBilling, patientID uuid.UUID) (payments.Payment, error) {
	f.lastAll = true
	f.toggled.PatientID = patientID
	f.toggled.Month = view.Month
	return f.toggled, nil
}

func paymentsRouter(h *PaymentsHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/billing/{month}/sync", h.PostSync)
	r.Post("/api/payments/{month}/toggle", h.PostToggle)
	return r
}

func authedPost(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	return req.WithContext(httpmiddleware.WithTherapistID(req.Context(), uuid.New()))
}

func TestPostSync(t *testing.T) {
	patientID := uuid.New()
	syncer := &fakeSyncer{mutations: []payments.Mutation{
		{Payment: payments.Payment{PatientID: patientID}, Created: true},
		{Payment: payments.Payment{PatientID: uuid.New()}},
	}}
	viewer := &fakeMonthViewer{}
	h := NewPaymentsHandler(viewer, syncer, nil)

	rr := httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/billing/2026-03/sync", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Month     string `json:"month"`
		Mutations int    `json:"mutations"`
		Created   int    `json:"created"`
		Updated   int    `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03", resp.Month)
	assert.Equal(t, 2, resp.Mutations)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Updated)
}

func TestPostSyncBadMonth(t *testing.T) {
	h := NewPaymentsHandler(&fakeMonthViewer{}, &fakeSyncer{}, nil)
	rr := httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/billing/2026-13/sync", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostToggleSingle(t *testing.T) {
	patientID := uuid.New()
	syncer := &fakeSyncer{toggled: payments.Payment{
		Amount:       300,
		SessionCount: 1,
		PaidEventIDs: []string{"e1"},
		Status:       payments.StatusPending,
	}}
	viewer := &fakeMonthViewer{view: billing.MonthBilling{
		Patients: []billing.PatientBilling{{
			Patient:  patients.Patient{ID: patientID},
			Sessions: []billing.Session{{EventID: "e1", Date: time.Now()}},
		}},
	}}
	h := NewPaymentsHandler(viewer, syncer, nil)

	body := `{"patientId":"` + patientID.String() + `","eventId":"e1"}`
	rr := httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/payments/2026-03/toggle", body))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "e1", syncer.lastEvent)
	assert.False(t, syncer.lastAll)

	var resp struct {
		Amount       float64  `json:"amount"`
		PaidEventIDs []string `json:"paidEventIds"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 300.0, resp.Amount)
	assert.Equal(t, []string{"e1"}, resp.PaidEventIDs)
}

func TestPostToggleAll(t *testing.T) {
	patientID := uuid.New()
	syncer := &fakeSyncer{toggled: payments.Payment{Paid: true, Status: payments.StatusPaid}}
	h := NewPaymentsHandler(&fakeMonthViewer{}, syncer, nil)

	body := `{"patientId":"` + patientID.String() + `","all":true}`
	rr := httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/payments/2026-03/toggle", body))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, syncer.lastAll)
}

func TestPostToggleValidation(t *testing.T) {
	h := NewPaymentsHandler(&fakeMonthViewer{}, &fakeSyncer{}, nil)

	// Neither eventId nor all.
	body := `{"patientId":"` + uuid.NewString() + `"}`
	rr := httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/payments/2026-03/toggle", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Malformed patient id.
	rr = httptest.NewRecorder()
	paymentsRouter(h).ServeHTTP(rr, authedPost("/api/payments/2026-03/toggle", `{"patientId":"nope","eventId":"e1"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
