package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if !limiter.Allow(ctx, "ip:1.2.3.4") || !limiter.Allow(ctx, "ip:1.2.3.4") {
		t.Fatalf("expected first two requests to pass")
	}
	if limiter.Allow(ctx, "ip:1.2.3.4") {
		t.Fatalf("expected third request in window to be rejected")
	}
	if !limiter.Allow(ctx, "ip:5.6.7.8") {
		t.Fatalf("expected separate key to have its own budget")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow(ctx, "ip:1.2.3.4") {
		t.Fatalf("expected budget to reset after the window")
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	if NewMemoryLimiter(0, time.Minute, nil) != nil {
		t.Fatalf("expected nil limiter for zero limit")
	}
	var limiter *MemoryLimiter
	if !limiter.Allow(context.Background(), "any") {
		t.Fatalf("nil limiter must allow")
	}
}

func TestMemoryLimiterBlankKeySharesAnonymousBucket(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute, nil)
	ctx := context.Background()

	if !limiter.Allow(ctx, "  ") {
		t.Fatalf("expected first anonymous request to pass")
	}
	if limiter.Allow(ctx, "") {
		t.Fatalf("expected blank keys to share one bucket")
	}
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, 1, time.Minute, WithKeyPrefix("test"))
	for i := 0; i < 3; i++ {
		if !limiter.Allow(context.Background(), "ip:1.2.3.4") {
			t.Fatalf("expected unreachable redis to allow request %d", i)
		}
	}
}

func TestWithKeyPrefixDropsTrailingSeparator(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	for raw, want := range map[string]string{
		"shopfront:ratelimit":   "shopfront:ratelimit",
		"shopfront:ratelimit::": "shopfront:ratelimit",
		" public ":              "public",
		":":                     defaultKeyPrefix,
	} {
		if got := NewRedisLimiter(client, 5, time.Minute, WithKeyPrefix(raw)).prefix; got != want {
			t.Fatalf("prefix %q: expected %q, got %q", raw, want, got)
		}
	}
}

func TestNewRedisLimiterRejectsInvalidConfig(t *testing.T) {
	if NewRedisLimiter(nil, 10, time.Minute) != nil {
		t.Fatalf("expected nil limiter without client")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	if NewRedisLimiter(client, 0, time.Minute) != nil {
		t.Fatalf("expected nil limiter for zero limit")
	}
}
