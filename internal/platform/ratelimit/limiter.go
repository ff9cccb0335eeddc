package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultWindow    = time.Minute
	defaultKeyPrefix = "ratelimit"
	anonymousKey     = "anonymous"
)

// Limiter decides whether another request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	Window() time.Duration
}

// MemoryLimiter is a fixed-window limiter held in process memory.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]windowEntry
}

type windowEntry struct {
	count int
	reset time.Time
}

// NewMemoryLimiter returns nil when limit or window is not positive; a nil limiter allows everything.
func NewMemoryLimiter(limit int, window time.Duration, clock func() time.Time) *MemoryLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]windowEntry),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	if l == nil {
		return true
	}
	key = normaliseKey(key)
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || !now.Before(entry.reset) {
		l.store[key] = windowEntry{count: 1, reset: now.Add(l.window)}
		l.pruneExpiredLocked(now)
		return true
	}

	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

// Window implements Limiter.
func (l *MemoryLimiter) Window() time.Duration {
	if l == nil {
		return defaultWindow
	}
	return l.window
}

func (l *MemoryLimiter) pruneExpiredLocked(now time.Time) {
	for key, entry := range l.store {
		if !now.Before(entry.reset) {
			delete(l.store, key)
		}
	}
}

// fixedWindowScript increments the counter and arms its expiry on the first hit of a window.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every instance pointed at the same Redis.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger
}

// RedisOption customises RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix namespaces counter keys, typically per route group.
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) {
		if prefix = strings.TrimRight(strings.TrimSpace(prefix), ":"); prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithLogger sets the logger used when Redis errors force the limiter open.
func WithLogger(logger *zap.Logger) RedisOption {
	return func(l *RedisLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisLimiter returns nil when limit or window is not positive or client is nil.
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, opts ...RedisOption) *RedisLimiter {
	if client == nil || limit <= 0 || window <= 0 {
		return nil
	}
	l := &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow implements Limiter. Redis failures let the request through.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return true
	}
	redisKey := fmt.Sprintf("%s:%s", l.prefix, normaliseKey(key))
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("rate limiter backend unavailable; allowing request",
			zap.String("prefix", l.prefix),
			zap.Error(err),
		)
		return true
	}
	return count <= int64(l.limit)
}

// Window implements Limiter.
func (l *RedisLimiter) Window() time.Duration {
	if l == nil {
		return defaultWindow
	}
	return l.window
}

func normaliseKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return anonymousKey
	}
	return key
}
