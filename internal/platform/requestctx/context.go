// Package requestctx carries request-scoped values between the HTTP middleware, the handlers and
// the recommendation service.
package requestctx

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	traceKey
	scopeKey
)

var discard = zap.NewNop()

// TraceInfo is the Cloud Trace identity of the current request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Scope records facts about a request that only inner layers learn: the verified shopper and the
// recommendation kind being served. Outer middleware reads it after the handler returns.
type Scope struct {
	mu      sync.Mutex
	shopper string
	kind    string
}

// ShopperID returns the verified shopper, or "" for anonymous requests.
func (s *Scope) ShopperID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shopper
}

// RecommendationKind returns the recommendation list served, or "" for non-recommendation routes.
func (s *Scope) RecommendationKind() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// WithScope attaches a Scope unless the context already carries one.
func WithScope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := ScopeFrom(ctx); existing != nil {
		return ctx, existing
	}
	scope := &Scope{}
	return context.WithValue(ctx, scopeKey, scope), scope
}

// ScopeFrom returns the request Scope or nil.
func ScopeFrom(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	scope, _ := ctx.Value(scopeKey).(*Scope)
	return scope
}

// SetShopperID records the verified shopper on the request Scope. It is a no-op without one.
func SetShopperID(ctx context.Context, shopperID string) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.mu.Lock()
		scope.shopper = shopperID
		scope.mu.Unlock()
	}
}

// SetRecommendationKind records which recommendation list the request serves.
func SetRecommendationKind(ctx context.Context, kind string) {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.mu.Lock()
		scope.kind = kind
		scope.mu.Unlock()
	}
}

// WithLogger stores logger on ctx. A nil logger stores a no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = discard
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger, or a no-op logger when none was stored.
func Logger(ctx context.Context) *zap.Logger {
	logger, _ := LoggerOK(ctx)
	return logger
}

// LoggerOK reports whether a logger was stored, returning a no-op logger when it was not.
func LoggerOK(ctx context.Context) (*zap.Logger, bool) {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
			return logger, true
		}
	}
	return discard, false
}

// WithTrace stores the trace identity on ctx.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey, info)
}

// Trace returns the trace identity when one was stored.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey).(TraceInfo)
	return info, ok
}

// TraceID returns the current trace ID or "".
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}
