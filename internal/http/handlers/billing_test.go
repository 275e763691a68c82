package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/internal/patients"
)

type fakeMonthViewer struct {
	view billing.MonthBilling
	err  error
}

func (f *fakeMonthViewer) Month(_ context.Context, _ uuid.UUID, month string) (billing.MonthBilling, error) {
	if f.err != nil {
		return billing.MonthBilling{}, f.err
	}
	view := f.view
	view.Month = month
	return view, nil
}

func getMonth(t *testing.T, h *BillingHandler, month string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/billing/{month}", h.GetMonth)

	req := httptest.NewRequest(http.MethodGet, "/api/billing/"+month, nil)
	if authed {
		req = req.WithContext(httpmiddleware.WithTherapistID(req.Context(), uuid.New()))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestGetMonth(t *testing.T) {
	dani := patients.Patient{ID: uuid.New(), Name: "דני לוי", BillingType: patients.BillingMonthly}
	viewer := &fakeMonthViewer{view: billing.MonthBilling{
		Patients: []billing.PatientBilling{{
			Patient: dani,
			Total:   600,
			Sessions: []billing.Session{{
				EventID: "e1",
				Date:    time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
				Summary: "דני לוי",
				Price:   300,
				Paid:    true,
			}},
		}},
		Unmatched:             []billing.UnmatchedLabel{{Label: "יוסי", Count: 2}},
		CalendarNameByPatient: map[uuid.UUID]string{dani.ID: "דני"},
	}}
	h := NewBillingHandler(viewer, nil)

	rr := getMonth(t, h, "2026-03", true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Month    string `json:"month"`
		Patients []struct {
			PatientID    string `json:"patientId"`
			Name         string `json:"name"`
			CalendarName string `json:"calendarName"`
			Sessions     []struct {
				Date string  `json:"date"`
				Paid bool    `json:"paid"`
				P    float64 `json:"price"`
			} `json:"sessions"`
			Total float64 `json:"total"`
		} `json:"patients"`
		Unmatched []struct {
			Label string `json:"label"`
			Count int    `json:"count"`
		} `json:"unmatched"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, "2026-03", resp.Month)
	require.Len(t, resp.Patients, 1)
	assert.Equal(t, dani.ID.String(), resp.Patients[0].PatientID)
	assert.Equal(t, "דני", resp.Patients[0].CalendarName)
	require.Len(t, resp.Patients[0].Sessions, 1)
	assert.Equal(t, "5/3/26", resp.Patients[0].Sessions[0].Date)
	assert.True(t, resp.Patients[0].Sessions[0].Paid)
	require.Len(t, resp.Unmatched, 1)
	assert.Equal(t, 2, resp.Unmatched[0].Count)
}

func TestGetMonthValidation(t *testing.T) {
	h := NewBillingHandler(&fakeMonthViewer{}, nil)

	rr := getMonth(t, h, "2026-3", true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = getMonth(t, h, "2026-03", false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMonthUpstreamFailure(t *testing.T) {
	h := NewBillingHandler(&fakeMonthViewer{err: errors.New("calendar down")}, nil)
	rr := getMonth(t, h, "2026-03", true)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
