package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/internal/payments"
	"github.com/talshachar/therabill/pkg/logging"
)

// Syncer is the reconciler surface the payments endpoints need.
type Syncer interface {
	SyncMonth(ctx context.Context, therapistID uuid.UUID, view billing.MonthBilling) ([]payments.Mutation, error)
	TogglePaid(ctx context.Context, therapistID uuid.UUID, view billing.MonthBilling, patientID uuid.UUID, eventID string) (payments.Payment, error)
	ToggleAllPaid(ctx context.Context, therapistID uuid.UUID, view billing.MonthBilling, patientID uuid.UUID) (payments.Payment, error)
}

// PaymentsHandler drives paid-state reconciliation over HTTP.
type PaymentsHandler struct {
	svc    MonthViewer
	rec    Syncer
	logger *logging.Logger
}

// NewPaymentsHandler creates the payments handler.
func NewPaymentsHandler(svc MonthViewer, rec Syncer, logger *logging.Logger) *PaymentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentsHandler{svc: svc, rec: rec, logger: logger}
}

type syncResponse struct {
	Month     string `json:"month"`
	Mutations int    `json:"mutations"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
}

// PostSync handles POST /api/billing/{month}/sync: fold the paid
// calendar colors into payment rows. Safe to call repeatedly.
func (h *PaymentsHandler) PostSync(w http.ResponseWriter, r *http.Request) {
	therapistID, view, ok := h.monthView(w, r)
	if !ok {
		return
	}
	mutations, err := h.rec.SyncMonth(r.Context(), therapistID, view)
	if err != nil {
		h.logger.Error("payments: sync failed", "month", view.Month, "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	resp := syncResponse{Month: view.Month, Mutations: len(mutations)}
	for _, m := range mutations {
		if m.Created {
			resp.Created++
		} else {
			resp.Updated++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type toggleRequest struct {
	PatientID string `json:"patientId"`
	EventID   string `json:"eventId,omitempty"`
	All       bool   `json:"all,omitempty"`
}

type paymentResponse struct {
	PatientID    string   `json:"patientId"`
	Month        string   `json:"month"`
	Amount       float64  `json:"amount"`
	SessionCount int      `json:"sessionCount"`
	Paid         bool     `json:"paid"`
	PaidEventIDs []string `json:"paidEventIds"`
	Status       string   `json:"status"`
}

// PostToggle handles POST /api/payments/{month}/toggle: flip one
// session's paid state, or all sessions when all=true.
func (h *PaymentsHandler) PostToggle(w http.ResponseWriter, r *http.Request) {
	therapistID, view, ok := h.monthView(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "patientId must be a uuid")
		return
	}
	if !req.All && req.EventID == "" {
		writeError(w, http.StatusBadRequest, "eventId required unless all=true")
		return
	}

	var row payments.Payment
	if req.All {
		row, err = h.rec.ToggleAllPaid(r.Context(), therapistID, view, patientID)
	} else {
		row, err = h.rec.TogglePaid(r.Context(), therapistID, view, patientID, req.EventID)
	}
	if err != nil {
		h.logger.Error("payments: toggle failed", "month", view.Month, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{
		PatientID:    row.PatientID.String(),
		Month:        row.Month,
		Amount:       row.Amount,
		SessionCount: row.SessionCount,
		Paid:         row.Paid,
		PaidEventIDs: row.PaidEventIDs,
		Status:       string(row.Status),
	})
}

func (h *PaymentsHandler) monthView(w http.ResponseWriter, r *http.Request) (uuid.UUID, billing.MonthBilling, bool) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return uuid.Nil, billing.MonthBilling{}, false
	}
	month := chi.URLParam(r, "month")
	if !billing.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return uuid.Nil, billing.MonthBilling{}, false
	}
	view, err := h.svc.Month(r.Context(), therapistID, month)
	if err != nil {
		h.logger.Error("payments: month view failed", "month", month, "error", err)
		writeError(w, http.StatusBadGateway, "failed to assemble month")
		return uuid.Nil, billing.MonthBilling{}, false
	}
	return therapistID, view, true
}
