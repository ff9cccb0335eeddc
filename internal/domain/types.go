package domain

import (
	"strings"
	"time"
)

// Category is the closed set of catalog departments.
type Category string

const (
	CategoryElectronics     Category = "Electronics"
	CategoryClothingFashion Category = "Clothing & Fashion"
	CategoryHomeGarden      Category = "Home & Garden"
	CategorySportsOutdoors  Category = "Sports & Outdoors"
	CategoryBooksMedia      Category = "Books & Media"
	CategoryToysGames       Category = "Toys & Games"
	CategoryHealthBeauty    Category = "Health & Beauty"
	CategoryAutomotive      Category = "Automotive"
)

var categories = []Category{
	CategoryElectronics,
	CategoryClothingFashion,
	CategoryHomeGarden,
	CategorySportsOutdoors,
	CategoryBooksMedia,
	CategoryToysGames,
	CategoryHealthBeauty,
	CategoryAutomotive,
}

// Categories returns every known category in catalog order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches the raw value against the known categories, ignoring case.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(string(c), raw) {
			return c, true
		}
	}
	return "", false
}

// Product is the catalog projection consumed by the recommendation engine. Review
// sub-documents are never loaded.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Brand       string
	Price       float64
	Tags        []string
	Rating      float64
	Sales       int64
	Views       int64
	Active      bool
	CreatedAt   time.Time
}

// HasTag reports whether the product carries the tag (case-insensitive).
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// OrderItem is a purchased line with the price paid at checkout.
type OrderItem struct {
	ProductID string
	UnitPrice float64
	Quantity  int
}

// Order is a customer order. Only paid orders feed purchase-history analysis.
type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Paid      bool
	CreatedAt time.Time
}

// ProductIDs returns the distinct product identifiers in line order.
func (o Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	out := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out = append(out, item.ProductID)
	}
	return out
}

// Shopper holds the user-owned lists the engine reads.
type Shopper struct {
	ID       string
	Wishlist []string
	Cart     []string
}

// PriceRange summarises historical unit prices. Max is nil when the user has no paid orders.
type PriceRange struct {
	Avg float64
	Max *float64
}

// PreferenceSnapshot is the per-request preference profile derived from purchase, wishlist, and
// cart signals. It is never persisted.
type PreferenceSnapshot struct {
	Categories []Category
	Brands     []string
	PriceRange PriceRange
	TotalItems int
}

// HasCategorySignal reports whether any category carries weight.
func (p PreferenceSnapshot) HasCategorySignal() bool {
	return len(p.Categories) > 0
}

// RecommendationSource tags where a scored product came from.
type RecommendationSource string

const (
	SourceCollaborative    RecommendationSource = "collaborative"
	SourceContentBased     RecommendationSource = "content-based"
	SourceSimilar          RecommendationSource = "similar"
	SourceBoughtTogether   RecommendationSource = "frequently-bought-together"
	SourceTrending         RecommendationSource = "trending"
	SourceSeasonal         RecommendationSource = "seasonal"
	SourceSearch           RecommendationSource = "search"
	SourceTrendingCategory RecommendationSource = "trending-in-category"
)

// ScoredProduct is a product annotated with its recommendation score and source.
type ScoredProduct struct {
	Product      Product
	Score        float64
	Source       RecommendationSource
	AvgPaidPrice float64
}

// SimilarUser is a neighbor sharing purchases with the target user.
type SimilarUser struct {
	UserID string
	Shared int
}

// CoPurchase records how often a product appears in paid orders alongside another.
type CoPurchase struct {
	ProductID string
	Frequency int
}

// SearchHit is a text search match with the store-assigned relevance.
type SearchHit struct {
	Product   Product
	Relevance float64
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
