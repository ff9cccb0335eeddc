package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shopfront/api/internal/platform/auth"
	"github.com/shopfront/api/internal/platform/httpx"
	"github.com/shopfront/api/internal/platform/observability"
	"github.com/shopfront/api/internal/platform/requestctx"
)

// KeyFunc derives the bucket a request counts against.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address. Run chi's RealIP middleware first when behind a proxy.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// IdentityOrIP keys authenticated requests by user and everything else by client IP.
func IdentityOrIP(r *http.Request) string {
	if r != nil {
		if identity, ok := auth.IdentityFromContext(r.Context()); ok {
			return "user:" + identity.UID
		}
	}
	return "ip:" + ClientIP(r)
}

// MiddlewareOption customises Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	keyFunc KeyFunc
	metrics *observability.RateLimitMetrics
}

// WithKeyFunc overrides the bucket key derivation. Defaults to ClientIP.
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if fn != nil {
			cfg.keyFunc = fn
		}
	}
}

// WithMetrics records rejections on the supplied instruments.
func WithMetrics(metrics *observability.RateLimitMetrics) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.metrics = metrics
	}
}

// Middleware rejects requests over the limit with 429 rate_limited. A nil limiter disables limiting.
func Middleware(limiter Limiter, scope string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{keyFunc: ClientIP}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(math.Ceil(limiter.Window().Seconds())))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if limiter.Allow(ctx, scope+":"+cfg.keyFunc(r)) {
				next.ServeHTTP(w, r)
				return
			}
			cfg.metrics.Rejected(ctx, scope)
			requestctx.Logger(ctx).Debug("request rate limited", zap.String("scope", scope))
			w.Header().Set("Retry-After", retryAfter)
			httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		})
	}
}
