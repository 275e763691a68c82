package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/internal/matching"
	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/pkg/logging"
)

type patientStore interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]patients.Patient, error)
	Upsert(ctx context.Context, p patients.Patient) error
	Delete(ctx context.Context, therapistID, patientID uuid.UUID) error
}

// PatientsHandler serves roster CRUD and match suggestions.
type PatientsHandler struct {
	store  patientStore
	logger *logging.Logger
}

// NewPatientsHandler creates the roster handler.
func NewPatientsHandler(store patientStore, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{store: store, logger: logger}
}

type patientPayload struct {
	ID                string  `json:"id,omitempty"`
	Name              string  `json:"name"`
	Phone             string  `json:"phone,omitempty"`
	SessionPrice      float64 `json:"sessionPrice"`
	BillingType       string  `json:"billingType"`
	ParentPatientID   string  `json:"parentPatientId,omitempty"`
	CommissionEnabled bool    `json:"commissionEnabled"`
	CommissionType    string  `json:"commissionType,omitempty"`
	CommissionValue   float64 `json:"commissionValue,omitempty"`
}

func toPatientPayload(p patients.Patient) patientPayload {
	out := patientPayload{
		ID:                p.ID.String(),
		Name:              p.Name,
		Phone:             p.Phone,
		SessionPrice:      p.SessionPrice,
		BillingType:       string(p.BillingType),
		CommissionEnabled: p.CommissionEnabled,
		CommissionType:    string(p.CommissionType),
		CommissionValue:   p.CommissionValue,
	}
	if p.ParentID != nil {
		out.ParentPatientID = p.ParentID.String()
	}
	return out
}

// List handles GET /api/patients.
func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	roster, err := h.store.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("patients: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	out := make([]patientPayload, 0, len(roster))
	for _, p := range roster {
		out = append(out, toPatientPayload(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// Upsert handles POST /api/patients.
func (h *PatientsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req patientPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := patients.Patient{
		TherapistID:       therapistID,
		Name:              req.Name,
		Phone:             req.Phone,
		SessionPrice:      req.SessionPrice,
		BillingType:       patients.BillingType(req.BillingType),
		CommissionEnabled: req.CommissionEnabled,
		CommissionType:    patients.CommissionType(req.CommissionType),
		CommissionValue:   req.CommissionValue,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be a uuid")
			return
		}
		p.ID = id
	}
	if req.ParentPatientID != "" {
		pid, err := uuid.Parse(req.ParentPatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parentPatientId must be a uuid")
			return
		}
		p.ParentID = &pid
	}

	if err := h.store.Upsert(r.Context(), p); err != nil {
		if errors.Is(err, patients.ErrDuplicateName) || errors.Is(err, patients.ErrNestedInstitution) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("patients: upsert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save patient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/patients/{id}.
func (h *PatientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.store.Delete(r.Context(), therapistID, id); err != nil {
		h.logger.Error("patients: delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete patient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggest handles GET /api/patients/suggest?label=... and returns the
// permissive partial-match candidates for an unmatched event label.
func (h *PatientsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	label := r.URL.Query().Get("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	roster, err := h.store.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("patients: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	matches := matching.SuggestPartial(label, roster)
	out := make([]patientPayload, 0, len(matches))
	for _, p := range matches {
		out = append(out, toPatientPayload(p))
	}
	writeJSON(w, http.StatusOK, out)
}
