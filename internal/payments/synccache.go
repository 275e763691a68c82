package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SyncCache remembers which months were already auto-reconciled so a
// repeat invocation becomes a no-op. It is advisory only: losing it
// costs a redundant (still idempotent) sync pass, never correctness.
type SyncCache interface {
	AlreadySynced(ctx context.Context, therapistID uuid.UUID, month string) bool
	MarkSynced(ctx context.Context, therapistID uuid.UUID, month string)
	Forget(ctx context.Context, therapistID uuid.UUID, month string)
}

// MemoryCache is the process-local SyncCache.
type MemoryCache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{seen: make(map[string]struct{})}
}

func (c *MemoryCache) AlreadySynced(_ context.Context, therapistID uuid.UUID, month string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[syncKey(therapistID, month)]
	return ok
}

func (c *MemoryCache) MarkSynced(_ context.Context, therapistID uuid.UUID, month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[syncKey(therapistID, month)] = struct{}{}
}

func (c *MemoryCache) Forget(_ context.Context, therapistID uuid.UUID, month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, syncKey(therapistID, month))
}

// Reset clears the cache; tests use it between cases.
func (c *MemoryCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]struct{})
}

// RedisCache shares sync state across processes with a TTL, so a
// redeploy does not re-sync every open month at once. Redis errors
// degrade to "not synced": the sync itself is idempotent.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) AlreadySynced(ctx context.Context, therapistID uuid.UUID, month string) bool {
	if c.client == nil {
		return false
	}
	n, err := c.client.Exists(ctx, syncKey(therapistID, month)).Result()
	return err == nil && n > 0
}

func (c *RedisCache) MarkSynced(ctx context.Context, therapistID uuid.UUID, month string) {
	if c.client == nil {
		return
	}
	c.client.Set(ctx, syncKey(therapistID, month), "1", c.ttl)
}

func (c *RedisCache) Forget(ctx context.Context, therapistID uuid.UUID, month string) {
	if c.client == nil {
		return
	}
	c.client.Del(ctx, syncKey(therapistID, month))
}

func syncKey(therapistID uuid.UUID, month string) string {
	return fmt.Sprintf("paysync:%s:%s", therapistID, month)
}
