package calendar

import (
	"context"
	"time"
)

// RenameResult reports a best-effort bulk rename of event titles.
type RenameResult struct {
	Updated int
	Failed  int
}

// Provider is the external calendar collaborator. Implementations own
// transport, auth and timeouts; callers treat every method as bounded
// I/O that may partially fail.
type Provider interface {
	// ListEvents returns the events starting within [from, to).
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)

	// PatchEventColor repaints one event to reflect the given status.
	PatchEventColor(ctx context.Context, calendarID, eventID string, status Status) error

	// RenameEvents retitles every event whose summary matches oldLabel.
	// Individual failures are counted, not fatal.
	RenameEvents(ctx context.Context, calendarID, oldLabel, newLabel string) (RenameResult, error)
}
