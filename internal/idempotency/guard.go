// Package idempotency keeps a client-chosen key from being used twice within
// a TTL, so a double-submitted sale is recorded once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrDuplicate = errors.New("idempotency key already used")

// Guard reserves keys for the duration of an operation.
type Guard interface {
	// Reserve claims key. It returns ErrDuplicate if the key is taken.
	Reserve(ctx context.Context, key string) error
	// Release frees a key whose operation failed so the client may retry.
	Release(ctx context.Context, key string) error
}

// RedisGuard stores reservations as expiring Redis keys.
type RedisGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl, prefix: "idempotent-key:"}
}

func (g *RedisGuard) Reserve(ctx context.Context, key string) error {
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, "exists", g.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Noop accepts every key. Used when no Redis is configured.
type Noop struct{}

func (Noop) Reserve(context.Context, string) error { return nil }
func (Noop) Release(context.Context, string) error { return nil }
