package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/shopfront/api/internal/platform/observability"

// RecommendationMetrics records request volume, latency, and result sizes per recommendation kind.
type RecommendationMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	results  metric.Int64Histogram
}

// NewRecommendationMetrics registers the recommendation instruments on the provider. A nil provider
// uses the global one, which is a no-op until an exporter is installed.
func NewRecommendationMetrics(provider metric.MeterProvider) (*RecommendationMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	requests, err := meter.Int64Counter("recommendation.requests",
		metric.WithDescription("Recommendation requests served, by kind and outcome."),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("recommendation.latency",
		metric.WithDescription("Time spent computing a recommendation list."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	results, err := meter.Int64Histogram("recommendation.results",
		metric.WithDescription("Number of products returned per recommendation request."),
	)
	if err != nil {
		return nil, err
	}
	return &RecommendationMetrics{requests: requests, latency: latency, results: results}, nil
}

// Record reports one completed recommendation request. Safe on a nil receiver.
func (m *RecommendationMetrics) Record(ctx context.Context, kind string, started time.Time, count int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(time.Since(started))/float64(time.Millisecond), attrs)
	if err == nil {
		m.results.Record(ctx, int64(count), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// RateLimitMetrics counts rejected requests.
type RateLimitMetrics struct {
	rejections metric.Int64Counter
}

// NewRateLimitMetrics registers the rate limiter instruments.
func NewRateLimitMetrics(provider metric.MeterProvider) (*RateLimitMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	rejections, err := provider.Meter(meterName).Int64Counter("ratelimit.rejections",
		metric.WithDescription("Requests rejected by the rate limiter."),
	)
	if err != nil {
		return nil, err
	}
	return &RateLimitMetrics{rejections: rejections}, nil
}

// Rejected records a rejection for the named limiter scope. Safe on a nil receiver.
func (m *RateLimitMetrics) Rejected(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}
