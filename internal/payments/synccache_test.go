package payments

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	tid := uuid.New()

	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))

	cache.MarkSynced(ctx, tid, "2026-03")
	assert.True(t, cache.AlreadySynced(ctx, tid, "2026-03"))
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-04"))
	assert.False(t, cache.AlreadySynced(ctx, uuid.New(), "2026-03"))

	cache.Forget(ctx, tid, "2026-03")
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))

	cache.MarkSynced(ctx, tid, "2026-03")
	cache.Reset()
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Hour)
	tid := uuid.New()

	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))

	cache.MarkSynced(ctx, tid, "2026-03")
	assert.True(t, cache.AlreadySynced(ctx, tid, "2026-03"))

	cache.Forget(ctx, tid, "2026-03")
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute)
	tid := uuid.New()

	cache.MarkSynced(ctx, tid, "2026-03")
	require.True(t, cache.AlreadySynced(ctx, tid, "2026-03"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))
}

func TestRedisCacheDegradesOnError(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Hour)
	tid := uuid.New()

	cache.MarkSynced(ctx, tid, "2026-03")
	mr.Close()

	// Redis being unreachable means "not synced", never an error.
	assert.False(t, cache.AlreadySynced(ctx, tid, "2026-03"))
	cache.MarkSynced(ctx, tid, "2026-03")
	cache.Forget(ctx, tid, "2026-03")
}
