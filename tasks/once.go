package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOnceTTL outlives any realistic redelivery of the same task.
const DefaultOnceTTL = 7 * 24 * time.Hour

// OnceGuard marks a side effect as started so a redelivered task skips it.
// Release undoes a claim when the side effect failed and should be retried.
type OnceGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// ConfirmationKey is the guard key for an order's confirmation email.
func ConfirmationKey(orderCode string) string {
	return fmt.Sprintf("confirmation:%s", orderCode)
}

type redisSetNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOnceGuard claims keys with SETNX so every worker and replica shares
// the same view.
type RedisOnceGuard struct {
	client redisSetNX
	ttl    time.Duration
}

func NewRedisOnceGuard(client *redis.Client, ttl time.Duration) *RedisOnceGuard {
	if ttl <= 0 {
		ttl = DefaultOnceTTL
	}
	return &RedisOnceGuard{client: client, ttl: ttl}
}

func (g *RedisOnceGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (g *RedisOnceGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// MemoryOnceGuard is the single-process guard used with ChannelQueue and in
// tests.
type MemoryOnceGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryOnceGuard() *MemoryOnceGuard {
	return &MemoryOnceGuard{keys: make(map[string]struct{})}
}

func (g *MemoryOnceGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.keys[key]; ok {
		return false, nil
	}
	g.keys[key] = struct{}{}
	return true, nil
}

func (g *MemoryOnceGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}
