package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/talshachar/therabill/pkg/logging"
)

type colorPatcher interface {
	PatchEventColor(ctx context.Context, calendarID, eventID string, status Status) error
}

// RepaintRequest asks for one event's color to be brought in line with
// local payment state.
type RepaintRequest struct {
	CalendarID string
	EventID    string
	Status     Status
}

// RepaintOutcome reports partial success: one event failing never
// rolls back or blocks the others.
type RepaintOutcome struct {
	Succeeded int
	Failed    int
}

// Repainter patches event colors in small concurrent batches with an
// inter-batch delay, to stay under the calendar API's rate limits.
// Rate-limited patches are retried with bounded exponential backoff.
type Repainter struct {
	provider   colorPatcher
	logger     *logging.Logger
	batchSize  int
	batchDelay time.Duration
	maxRetries int
	retryBase  time.Duration
}

// NewRepainter creates a repainter with the default rate-limit posture.
func NewRepainter(provider colorPatcher, logger *logging.Logger) *Repainter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Repainter{
		provider:   provider,
		logger:     logger,
		batchSize:  3,
		batchDelay: 500 * time.Millisecond,
		maxRetries: 2,
		retryBase:  time.Second,
	}
}

func (r *Repainter) WithBatchSize(n int) *Repainter {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

func (r *Repainter) WithBatchDelay(d time.Duration) *Repainter {
	if d >= 0 {
		r.batchDelay = d
	}
	return r
}

func (r *Repainter) WithMaxRetries(n int) *Repainter {
	if n >= 0 {
		r.maxRetries = n
	}
	return r
}

func (r *Repainter) WithRetryBase(d time.Duration) *Repainter {
	if d > 0 {
		r.retryBase = d
	}
	return r
}

// Repaint applies all requests, batch by batch, and reports per-item
// results. It returns early only when the context is cancelled.
func (r *Repainter) Repaint(ctx context.Context, reqs []RepaintRequest) RepaintOutcome {
	var outcome RepaintOutcome
	if r.provider == nil || len(reqs) == 0 {
		return outcome
	}
	var mu sync.Mutex
	for start := 0; start < len(reqs); start += r.batchSize {
		if ctx.Err() != nil {
			mu.Lock()
			outcome.Failed += len(reqs) - start
			mu.Unlock()
			break
		}
		end := start + r.batchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		var wg sync.WaitGroup
		for _, req := range reqs[start:end] {
			wg.Add(1)
			go func(req RepaintRequest) {
				defer wg.Done()
				err := r.patchWithRetry(ctx, req)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					outcome.Failed++
					return
				}
				outcome.Succeeded++
			}(req)
		}
		wg.Wait()
		if end < len(reqs) {
			if err := sleepCtx(ctx, r.batchDelay); err != nil {
				continue
			}
		}
	}
	return outcome
}

func (r *Repainter) patchWithRetry(ctx context.Context, req RepaintRequest) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.provider.PatchEventColor(ctx, req.CalendarID, req.EventID, req.Status)
		if err == nil {
			return nil
		}
		if attempt >= r.maxRetries || !IsRateLimited(err) {
			break
		}
		delay := r.retryBase << attempt
		r.logger.Warn("calendar: repaint rate limited, retrying",
			"event_id", req.EventID,
			"attempt", attempt+1,
			"delay", delay.String(),
		)
		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			break
		}
	}
	r.logger.Error("calendar: repaint failed",
		"event_id", req.EventID,
		"calendar_id", req.CalendarID,
		"error", err,
	)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
