package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDeduper(t *testing.T, ttl time.Duration) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDeduper(client, ttl), mr
}

func TestRedisDeduperRecognizesReplays(t *testing.T) {
	deduper, _ := newTestDeduper(t, time.Hour)
	ctx := context.Background()

	seen, err := deduper.Seen(ctx, "event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be marked seen")
	}

	seen, err = deduper.Seen(ctx, "event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Fatal("replay must be recognized")
	}

	seen, err = deduper.Seen(ctx, "event-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatal("distinct event must not be marked seen")
	}
}

func TestRedisDeduperEntriesExpire(t *testing.T) {
	deduper, mr := newTestDeduper(t, time.Minute)
	ctx := context.Background()

	if _, err := deduper.Seen(ctx, "event-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	seen, err := deduper.Seen(ctx, "event-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatal("expired entry must not count as a replay")
	}
}
