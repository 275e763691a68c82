package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

type patchRecorder struct {
	mu    sync.Mutex
	calls map[string]int
	// failures maps event id to how many leading attempts should fail
	// and with which error.
	failures map[string]int
	failWith error
}

func newPatchRecorder() *patchRecorder {
	return &patchRecorder{
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
}

func (p *patchRecorder) PatchEventColor(_ context.Context, _ string, eventID string, _ Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[eventID]++
	if p.failures[eventID] > 0 {
		p.failures[eventID]--
		return p.failWith
	}
	return nil
}

func reqs(ids ...string) []RepaintRequest {
	out := make([]RepaintRequest, len(ids))
	for i, id := range ids {
		out[i] = RepaintRequest{CalendarID: "primary", EventID: id, Status: StatusPaid}
	}
	return out
}

func TestRepaintAllSucceed(t *testing.T) {
	rec := newPatchRecorder()
	r := NewRepainter(rec, nil).WithBatchDelay(0)

	outcome := r.Repaint(context.Background(), reqs("e1", "e2", "e3", "e4", "e5"))
	assert.Equal(t, RepaintOutcome{Succeeded: 5}, outcome)
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5"} {
		assert.Equal(t, 1, rec.calls[id], id)
	}
}

func TestRepaintRetriesRateLimit(t *testing.T) {
	rec := newPatchRecorder()
	rec.failWith = &googleapi.Error{Code: 429}
	rec.failures["e1"] = 2

	r := NewRepainter(rec, nil).WithBatchDelay(0).WithRetryBase(time.Millisecond)

	outcome := r.Repaint(context.Background(), reqs("e1"))
	assert.Equal(t, RepaintOutcome{Succeeded: 1}, outcome)
	assert.Equal(t, 3, rec.calls["e1"])
}

func TestRepaintGivesUpAfterMaxRetries(t *testing.T) {
	rec := newPatchRecorder()
	rec.failWith = &googleapi.Error{Code: 429}
	rec.failures["e1"] = 10

	r := NewRepainter(rec, nil).WithBatchDelay(0).WithMaxRetries(2).WithRetryBase(time.Millisecond)

	outcome := r.Repaint(context.Background(), reqs("e1"))
	assert.Equal(t, RepaintOutcome{Failed: 1}, outcome)
	assert.Equal(t, 3, rec.calls["e1"])
}

func TestRepaintNoRetryOnOtherErrors(t *testing.T) {
	rec := newPatchRecorder()
	rec.failWith = errors.New("not found")
	rec.failures["e2"] = 10

	r := NewRepainter(rec, nil).WithBatchDelay(0).WithRetryBase(time.Millisecond)

	outcome := r.Repaint(context.Background(), reqs("e1", "e2", "e3"))
	assert.Equal(t, RepaintOutcome{Succeeded: 2, Failed: 1}, outcome)
	assert.Equal(t, 1, rec.calls["e2"])
}

func TestRepaintCancelledContext(t *testing.T) {
	rec := newPatchRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRepainter(rec, nil).WithBatchSize(2).WithBatchDelay(0)
	outcome := r.Repaint(ctx, reqs("e1", "e2", "e3"))
	assert.Equal(t, 3, outcome.Failed+outcome.Succeeded)
	assert.Equal(t, RepaintOutcome{Failed: 3}, outcome)
}

func TestRepaintEmpty(t *testing.T) {
	r := NewRepainter(newPatchRecorder(), nil)
	assert.Equal(t, RepaintOutcome{}, r.Repaint(context.Background(), nil))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&googleapi.Error{Code: 429}))
	assert.True(t, IsRateLimited(&googleapi.Error{Code: 403, Message: "Rate Limit Exceeded"}))
	assert.True(t, IsRateLimited(&googleapi.Error{Code: 403, Message: "Calendar usage quota exceeded"}))
	assert.False(t, IsRateLimited(&googleapi.Error{Code: 403, Message: "forbidden"}))
	assert.False(t, IsRateLimited(&googleapi.Error{Code: 404}))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))

	wrapped := fmt.Errorf("calendar: patch color: %w", &googleapi.Error{Code: 429})
	assert.True(t, IsRateLimited(wrapped))
}
