package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/talshachar/therabill/internal/matching"
	"github.com/talshachar/therabill/pkg/logging"
)

// Window scanned when renaming events: past sessions for the billing
// history plus the already-scheduled future ones.
const (
	renameLookback  = 365 * 24 * time.Hour
	renameLookahead = 180 * 24 * time.Hour
)

// GoogleProvider implements Provider over the Google Calendar API.
// Token acquisition and refresh happen outside; the provider accepts a
// ready service.
type GoogleProvider struct {
	svc    *gcal.Service
	logger *logging.Logger
}

// NewGoogleProvider wraps an authenticated Google Calendar service.
func NewGoogleProvider(svc *gcal.Service, logger *logging.Logger) *GoogleProvider {
	if svc == nil {
		panic("calendar: google service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleProvider{svc: svc, logger: logger}
}

// ListEvents returns the events starting within [from, to), mapped to
// boundary structs.
func (g *GoogleProvider) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error) {
	var out []Event
	call := g.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, ok := g.mapEvent(calendarID, item)
			if !ok {
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	return out, nil
}

// PatchEventColor repaints a single event. The default status clears
// the color instead of setting one.
func (g *GoogleProvider) PatchEventColor(ctx context.Context, calendarID, eventID string, status Status) error {
	patch := &gcal.Event{ColorId: status.ColorID()}
	if patch.ColorId == "" {
		patch.ForceSendFields = append(patch.ForceSendFields, "ColorId")
	}
	if _, err := g.svc.Events.Patch(calendarID, eventID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: patch color for %s: %w", eventID, err)
	}
	return nil
}

// RenameEvents retitles every event whose summary matches oldLabel
// (normalized comparison). Failures are counted per event and never
// abort the scan.
func (g *GoogleProvider) RenameEvents(ctx context.Context, calendarID, oldLabel, newLabel string) (RenameResult, error) {
	key := matching.Normalize(oldLabel)
	if key == "" {
		return RenameResult{}, errors.New("calendar: rename needs a non-empty label")
	}
	now := time.Now()
	events, err := g.ListEvents(ctx, calendarID, now.Add(-renameLookback), now.Add(renameLookahead))
	if err != nil {
		return RenameResult{}, err
	}
	var res RenameResult
	for _, ev := range events {
		if matching.Normalize(ev.Summary) != key {
			continue
		}
		patch := &gcal.Event{Summary: newLabel}
		if _, err := g.svc.Events.Patch(calendarID, ev.ID, patch).Context(ctx).Do(); err != nil {
			g.logger.Error("calendar: rename event failed", "event_id", ev.ID, "error", err)
			res.Failed++
			continue
		}
		res.Updated++
	}
	return res, nil
}

func (g *GoogleProvider) mapEvent(calendarID string, item *gcal.Event) (Event, bool) {
	if item == nil || item.Id == "" || item.Status == "cancelled" {
		return Event{}, false
	}
	start, ok := parseEventStart(item.Start)
	if !ok {
		return Event{}, false
	}
	return Event{
		ID:         item.Id,
		CalendarID: calendarID,
		Summary:    strings.TrimSpace(item.Summary),
		Start:      start,
		Status:     StatusFromColorID(item.ColorId),
	}, true
}

func parseEventStart(start *gcal.EventDateTime) (time.Time, bool) {
	if start == nil {
		return time.Time{}, false
	}
	if start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, start.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if start.Date != "" {
		t, err := time.Parse("2006-01-02", start.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// IsRateLimited classifies a provider error as retryable throttling.
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 429 {
		return true
	}
	if apiErr.Code == 403 {
		msg := strings.ToLower(apiErr.Message)
		return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
	}
	return false
}
