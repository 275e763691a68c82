package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/analysis"
	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/internal/payments"
	"github.com/talshachar/therabill/pkg/logging"
)

type paymentLister interface {
	ListForMonth(ctx context.Context, therapistID uuid.UUID, month string) ([]payments.Payment, error)
}

type rosterLister interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]patients.Patient, error)
}

type analysisSettings interface {
	VATRate(ctx context.Context, therapistID uuid.UUID) (float64, error)
	ListDeductions(ctx context.Context, therapistID uuid.UUID) ([]analysis.Deduction, error)
}

// AnalysisHandler serves the monthly financial report.
type AnalysisHandler struct {
	payments paymentLister
	roster   rosterLister
	settings analysisSettings
	logger   *logging.Logger
}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler(pay paymentLister, roster rosterLister, settings analysisSettings, logger *logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AnalysisHandler{payments: pay, roster: roster, settings: settings, logger: logger}
}

type patientAnalysisResponse struct {
	PatientID          string  `json:"patientId"`
	Name               string  `json:"name"`
	Gross              float64 `json:"gross"`
	VAT                float64 `json:"vat"`
	Base               float64 `json:"base"`
	Commission         float64 `json:"commission"`
	NetAfterCommission float64 `json:"netAfterCommission"`
	PaymentCount       int     `json:"paymentCount"`
	RefundCount        int     `json:"refundCount"`
	RefundAmount       float64 `json:"refundAmount"`
}

type monthAnalysisResponse struct {
	Month                 string                    `json:"month"`
	Patients              []patientAnalysisResponse `json:"patients"`
	TotalGross            float64                   `json:"totalGross"`
	TotalVAT              float64                   `json:"totalVat"`
	BaseAfterVAT          float64                   `json:"baseAfterVat"`
	GlobalDeductionsTotal float64                   `json:"globalDeductionsTotal"`
	TotalCommission       float64                   `json:"totalCommission"`
	Net                   float64                   `json:"net"`
	RefundCount           int                       `json:"refundCount"`
	RefundAmount          float64                   `json:"refundAmount"`
}

// GetMonth handles GET /api/analysis/{month}. Query flags:
// includeRefunds, netAfterRefunds.
func (h *AnalysisHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	pays, err := h.payments.ListForMonth(ctx, therapistID, month)
	if err != nil {
		h.logger.Error("analysis: load payments failed", "month", month, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	roster, err := h.roster.List(ctx, therapistID)
	if err != nil {
		h.logger.Error("analysis: load roster failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	vatRate, err := h.settings.VATRate(ctx, therapistID)
	if err != nil {
		h.logger.Error("analysis: load vat rate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	deductions, err := h.settings.ListDeductions(ctx, therapistID)
	if err != nil {
		h.logger.Error("analysis: load deductions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	opts := analysis.Options{
		IncludeRefunds:  r.URL.Query().Get("includeRefunds") == "true",
		NetAfterRefunds: r.URL.Query().Get("netAfterRefunds") == "true",
	}
	report := analysis.ComputeAnalysis(month, pays, roster, vatRate, deductions, opts)

	resp := monthAnalysisResponse{
		Month:                 report.Month,
		Patients:              make([]patientAnalysisResponse, 0, len(report.Patients)),
		TotalGross:            report.TotalGross,
		TotalVAT:              report.TotalVAT,
		BaseAfterVAT:          report.BaseAfterVAT,
		GlobalDeductionsTotal: report.GlobalDeductionsTotal,
		TotalCommission:       report.TotalCommission,
		Net:                   report.Net,
		RefundCount:           report.RefundCount,
		RefundAmount:          report.RefundAmount,
	}
	for _, pa := range report.Patients {
		resp.Patients = append(resp.Patients, patientAnalysisResponse{
			PatientID:          pa.Patient.ID.String(),
			Name:               pa.Patient.Name,
			Gross:              pa.Gross,
			VAT:                pa.VAT,
			Base:               pa.Base,
			Commission:         pa.Commission,
			NetAfterCommission: pa.NetAfterCommission,
			PaymentCount:       len(pa.Payments),
			RefundCount:        pa.RefundCount,
			RefundAmount:       pa.RefundAmount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
