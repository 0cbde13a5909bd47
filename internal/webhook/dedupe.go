package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper recognizes replayed webhook events.
type Deduper interface {
	// Seen atomically records the event ID and reports whether it was
	// already present.
	Seen(ctx context.Context, eventID string) (bool, error)
}

// RedisDeduper implements Deduper with SETNX and a TTL. Providers retry for
// hours, not weeks, so expired entries are safe to forget.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a redis-backed deduper.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	set, err := d.client.SetNX(ctx, "webhook:event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

var _ Deduper = (*RedisDeduper)(nil)

// NoopDeduper never recognizes a replay. Used when redis is not configured;
// ingestion's guarded writes keep duplicate events harmless regardless.
type NoopDeduper struct{}

func (NoopDeduper) Seen(context.Context, string) (bool, error) { return false, nil }
