package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/billing"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/pkg/logging"
)

type aliasStore interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]billing.EventAlias, error)
	Upsert(ctx context.Context, a billing.EventAlias) error
	Delete(ctx context.Context, therapistID uuid.UUID, eventName string) error
}

type ignoreStore interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]billing.IgnoredEventName, error)
	Upsert(ctx context.Context, row billing.IgnoredEventName) error
	Delete(ctx context.Context, therapistID uuid.UUID, eventName string) error
}

type overrideStore interface {
	List(ctx context.Context, therapistID uuid.UUID) ([]billing.SessionOverride, error)
	Upsert(ctx context.Context, o billing.SessionOverride) error
	Delete(ctx context.Context, therapistID uuid.UUID, eventID string) error
}

// MatchingAdminHandler serves CRUD for aliases, ignored labels and
// price overrides, the persisted knobs of the matching engine.
type MatchingAdminHandler struct {
	aliases   aliasStore
	ignores   ignoreStore
	overrides overrideStore
	logger    *logging.Logger
}

// NewMatchingAdminHandler creates the matching-state handler.
func NewMatchingAdminHandler(aliases aliasStore, ignores ignoreStore, overrides overrideStore, logger *logging.Logger) *MatchingAdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchingAdminHandler{aliases: aliases, ignores: ignores, overrides: overrides, logger: logger}
}

type aliasPayload struct {
	EventName string `json:"eventName"`
	PatientID string `json:"patientId"`
}

func (h *MatchingAdminHandler) ListAliases(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	rows, err := h.aliases.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("aliases: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load aliases")
		return
	}
	out := make([]aliasPayload, 0, len(rows))
	for _, a := range rows {
		out = append(out, aliasPayload{EventName: a.EventName, PatientID: a.PatientID.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MatchingAdminHandler) UpsertAlias(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req aliasPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "patientId must be a uuid")
		return
	}
	if err := h.aliases.Upsert(r.Context(), billing.EventAlias{
		TherapistID: therapistID,
		EventName:   req.EventName,
		PatientID:   patientID,
	}); err != nil {
		h.logger.Error("aliases: upsert failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchingAdminHandler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	h.deleteByName(w, r, func(ctx context.Context, tid uuid.UUID, name string) error {
		return h.aliases.Delete(ctx, tid, name)
	})
}

type ignorePayload struct {
	EventName string `json:"eventName"`
}

func (h *MatchingAdminHandler) ListIgnores(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	rows, err := h.ignores.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("ignores: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load ignored labels")
		return
	}
	out := make([]ignorePayload, 0, len(rows))
	for _, row := range rows {
		out = append(out, ignorePayload{EventName: row.EventName})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MatchingAdminHandler) UpsertIgnore(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req ignorePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.ignores.Upsert(r.Context(), billing.IgnoredEventName{
		TherapistID: therapistID,
		EventName:   req.EventName,
	}); err != nil {
		h.logger.Error("ignores: upsert failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchingAdminHandler) DeleteIgnore(w http.ResponseWriter, r *http.Request) {
	h.deleteByName(w, r, func(ctx context.Context, tid uuid.UUID, name string) error {
		return h.ignores.Delete(ctx, tid, name)
	})
}

type overridePayload struct {
	EventID     string  `json:"eventId"`
	PatientID   string  `json:"patientId"`
	CustomPrice float64 `json:"customPrice"`
}

func (h *MatchingAdminHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	rows, err := h.overrides.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("overrides: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}
	out := make([]overridePayload, 0, len(rows))
	for _, o := range rows {
		out = append(out, overridePayload{
			EventID:     o.EventID,
			PatientID:   o.PatientID.String(),
			CustomPrice: o.CustomPrice,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MatchingAdminHandler) UpsertOverride(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req overridePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "patientId must be a uuid")
		return
	}
	if err := h.overrides.Upsert(r.Context(), billing.SessionOverride{
		TherapistID: therapistID,
		EventID:     req.EventID,
		PatientID:   patientID,
		CustomPrice: req.CustomPrice,
	}); err != nil {
		h.logger.Error("overrides: upsert failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchingAdminHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "eventId is required")
		return
	}
	if err := h.overrides.Delete(r.Context(), therapistID, eventID); err != nil {
		h.logger.Error("overrides: delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete override")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchingAdminHandler) deleteByName(w http.ResponseWriter, r *http.Request, del func(context.Context, uuid.UUID, string) error) {
	therapistID, ok := httpmiddleware.TherapistIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	name := r.URL.Query().Get("eventName")
	if name == "" {
		writeError(w, http.StatusBadRequest, "eventName is required")
		return
	}
	if err := del(r.Context(), therapistID, name); err != nil {
		h.logger.Error("matching admin: delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
