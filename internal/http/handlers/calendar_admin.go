package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/talshachar/therabill/internal/calendar"
	httpmiddleware "github.com/talshachar/therabill/internal/http/middleware"
	"github.com/talshachar/therabill/pkg/logging"
)

type eventRenamer interface {
	RenameEvents(ctx context.Context, calendarID, oldLabel, newLabel string) (calendar.RenameResult, error)
}

// CalendarAdminHandler propagates patient renames back to the
// calendar, best effort.
type CalendarAdminHandler struct {
	provider   eventRenamer
	calendarID string
	logger     *logging.Logger
}

// NewCalendarAdminHandler creates the calendar admin handler.
func NewCalendarAdminHandler(provider eventRenamer, calendarID string, logger *logging.Logger) *CalendarAdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarAdminHandler{provider: provider, calendarID: calendarID, logger: logger}
}

type renameRequest struct {
	OldLabel string `json:"oldLabel"`
	NewLabel string `json:"newLabel"`
}

type renameResponse struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// PostRename handles POST /api/calendar/rename. Per-event failures are
// reported, not fatal: partial success wins over all-or-nothing.
func (h *CalendarAdminHandler) PostRename(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpmiddleware.TherapistIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "missing therapist identity")
		return
	}
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OldLabel) == "" || strings.TrimSpace(req.NewLabel) == "" {
		writeError(w, http.StatusBadRequest, "oldLabel and newLabel are required")
		return
	}
	res, err := h.provider.RenameEvents(r.Context(), h.calendarID, req.OldLabel, req.NewLabel)
	if err != nil {
		h.logger.Error("calendar: rename failed", "error", err)
		writeError(w, http.StatusBadGateway, "rename failed")
		return
	}
	writeJSON(w, http.StatusOK, renameResponse{Updated: res.Updated, Failed: res.Failed})
}
