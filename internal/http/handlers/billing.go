package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/pkg/logging"
)

// MonthViewer assembles month billing views.
type MonthViewer interface {
	Month(ctx context.Context, therapistID uuid.UUID, month string) (billing.MonthBilling, error)
}

// BillingHandler serves the assembled month view.
type BillingHandler struct {
	svc    MonthViewer
	logger *logging.Logger
}

// NewBillingHandler creates the billing view handler.
func NewBillingHandler(svc MonthViewer, logger *logging.Logger) *BillingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BillingHandler{svc: svc, logger: logger}
}

type sessionResponse struct {
	EventID          string  `json:"eventId"`
	Date             string  `json:"date"`
	Summary          string  `json:"summary"`
	Price            float64 `json:"price"`
	Paid             bool    `json:"paid"`
	ChildPatientName string  `json:"childPatientName,omitempty"`
}

type patientBillingResponse struct {
	PatientID    string            `json:"patientId"`
	Name         string            `json:"name"`
	BillingType  string            `json:"billingType"`
	Sessions     []sessionResponse `json:"sessions"`
	Total        float64           `json:"total"`
	CalendarName string            `json:"calendarName,omitempty"`
}

type unmatchedResponse struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type monthBillingResponse struct {
	Month     string                   `json:"month"`
	Patients  []patientBillingResponse `json:"patients"`
	Unmatched []unmatchedResponse      `json:"unmatched"`
}

// GetMonth handles GET /api/billing/{month}.
func (h *BillingHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	month := chi.URLParam(r, "month")
	if !billing.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	view, err := h.svc.Month(r.Context(), therapistID, month)
	if err != nil {
		h.logger.Error("billing: month view failed", "month", month, "error", err)
		writeError(w, http.StatusBadGateway, "failed to assemble month")
		return
	}
	writeJSON(w, http.StatusOK, toMonthResponse(view))
}

func toMonthResponse(view billing.MonthBilling) monthBillingResponse {
	resp := monthBillingResponse{
		Month:     view.Month,
		Patients:  []patientBillingResponse{},
		Unmatched: []unmatchedResponse{},
	}
	for _, pb := range view.Patients {
		line := patientBillingResponse{
			PatientID:    pb.Patient.ID.String(),
			Name:         pb.Patient.Name,
			BillingType:  string(pb.Patient.BillingType),
			Total:        pb.Total,
			CalendarName: view.CalendarNameByPatient[pb.Patient.ID],
			Sessions:     make([]sessionResponse, 0, len(pb.Sessions)),
		}
		for _, s := range pb.Sessions {
			line.Sessions = append(line.Sessions, sessionResponse{
				EventID:          s.EventID,
				Date:             billing.DisplayDate(s.Date),
				Summary:          s.Summary,
				Price:            s.Price,
				Paid:             s.Paid,
				ChildPatientName: s.ChildPatientName,
			})
		}
		resp.Patients = append(resp.Patients, line)
	}
	for _, u := range view.Unmatched {
		resp.Unmatched = append(resp.Unmatched, unmatchedResponse{Label: u.Label, Count: u.Count})
	}
	return resp
}
