package cart

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Clearer empties a user's cart once their order is paid.
type Clearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type redisDeleter interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCartClearer deletes the cart document the cart service keeps in Redis.
type RedisCartClearer struct {
	client redisDeleter
}

func NewRedisCartClearer(client *redis.Client) *RedisCartClearer {
	return &RedisCartClearer{client: client}
}

// Key returns the Redis key the cart service stores a user's cart under.
func Key(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// ClearCart is idempotent: deleting a missing key is not an error.
func (c *RedisCartClearer) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("clear cart: empty user id")
	}
	if err := c.client.Del(ctx, Key(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart for %s: %w", userID, err)
	}
	return nil
}

// NewRedisClient parses redisURL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
