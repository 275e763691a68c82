package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/analysis"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/pkg/logging"
)

type settingsStore interface {
	VATRate(ctx context.Context, therapistID uuid.UUID) (float64, error)
	SetVATRate(ctx context.Context, therapistID uuid.UUID, rate float64) error
	ListDeductions(ctx context.Context, therapistID uuid.UUID) ([]analysis.Deduction, error)
	UpsertDeduction(ctx context.Context, therapistID uuid.UUID, d analysis.Deduction) error
	DeleteDeduction(ctx context.Context, therapistID, id uuid.UUID) error
}

// SettingsHandler serves the VAT rate and global deduction settings.
type SettingsHandler struct {
	store  settingsStore
	logger *logging.Logger
}

// NewSettingsHandler creates the settings handler.
func NewSettingsHandler(store settingsStore, logger *logging.Logger) *SettingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SettingsHandler{store: store, logger: logger}
}

type vatPayload struct {
	RatePercent float64 `json:"ratePercent"`
}

func (h *SettingsHandler) GetVAT(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	rate, err := h.store.VATRate(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("settings: load vat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load vat rate")
		return
	}
	writeJSON(w, http.StatusOK, vatPayload{RatePercent: rate})
}

func (h *SettingsHandler) PutVAT(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req vatPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.SetVATRate(r.Context(), therapistID, req.RatePercent); err != nil {
		h.logger.Error("settings: save vat failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deductionPayload struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Value   float64 `json:"value"`
	Enabled bool    `json:"enabled"`
}

func (h *SettingsHandler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	rows, err := h.store.ListDeductions(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("settings: list deductions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load deductions")
		return
	}
	out := make([]deductionPayload, 0, len(rows))
	for _, d := range rows {
		out = append(out, deductionPayload{
			ID:      d.ID.String(),
			Name:    d.Name,
			Type:    string(d.Type),
			Value:   d.Value,
			Enabled: d.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SettingsHandler) UpsertDeduction(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req deductionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d := analysis.Deduction{
		Name:    req.Name,
		Type:    analysis.DeductionType(req.Type),
		Value:   req.Value,
		Enabled: req.Enabled,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a uuid")
			return
		}
		d.ID = id
	}
	if err := h.store.UpsertDeduction(r.Context(), therapistID, d); err != nil {
		h.logger.Error("settings: upsert deduction failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) DeleteDeduction(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a uuid")
		return
	}
	if err := h.store.DeleteDeduction(r.Context(), therapistID, id); err != nil {
		h.logger.Error("settings: delete deduction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete deduction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
