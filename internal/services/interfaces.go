package services

import (
	"context"

	domain "github.com/shopfront/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	ScoredProduct      = domain.ScoredProduct
	SearchHit          = domain.SearchHit
	PreferenceSnapshot = domain.PreferenceSnapshot
	SystemHealthReport = domain.SystemHealthReport
	SystemHealthCheck  = domain.SystemHealthCheck
)

// PersonalizedRecommendations is the fused list for one shopper plus the profile it was built from.
type PersonalizedRecommendations struct {
	Items       []ScoredProduct
	Preferences PreferenceSnapshot
}

// ProductRecommendations groups the lists shown on a product detail page.
type ProductRecommendations struct {
	Similar                  []Product
	FrequentlyBoughtTogether []ScoredProduct
	TrendingInCategory       []Product
}

// SeasonalRecommendations carries the season the list was computed for.
type SeasonalRecommendations struct {
	Season   string
	Products []Product
}

// SearchResults carries the normalised query alongside its ranked hits.
type SearchResults struct {
	Query string
	Hits  []SearchHit
}

// RecommendationService computes every recommendation list the API serves. A limit of zero
// selects the configured default; limits above the maximum are clamped.
type RecommendationService interface {
	Personalized(ctx context.Context, userID string, limit int) (PersonalizedRecommendations, error)
	ForProduct(ctx context.Context, productID string, limit int) (ProductRecommendations, error)
	// Trending ranks active products; category is optional and matched case-insensitively.
	Trending(ctx context.Context, category string, limit int) ([]Product, error)
	Seasonal(ctx context.Context, limit int) (SeasonalRecommendations, error)
	Search(ctx context.Context, query string, limit int) (SearchResults, error)
}

// SystemService exposes health reports for the readiness endpoint.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
