package repositories

import (
	"context"

	domain "github.com/shopfront/api/internal/domain"
)

// Registry exposes the read repositories the recommendation engine consumes plus lifecycle hooks
// for dependency injection.
type Registry interface {
	Close(ctx context.Context) error
	// Ping verifies the backing store is reachable. Used by readiness checks.
	Ping(ctx context.Context) error

	Catalog() CatalogRepository
	Orders() OrderRepository
	Shoppers() ShopperRepository
	Seeder() Seeder
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductFilter selects catalog products. Categories, Brands, and Tags are OR-ed together; an
// empty filter matches every product. Results are ordered by product ID.
type ProductFilter struct {
	Categories []domain.Category
	Brands     []string
	Tags       []string
	ActiveOnly bool
}

// IsEmpty reports whether the filter carries no attribute constraint.
func (f ProductFilter) IsEmpty() bool {
	return len(f.Categories) == 0 && len(f.Brands) == 0 && len(f.Tags) == 0
}

// CatalogRepository reads product documents.
type CatalogRepository interface {
	// Get returns a RepositoryError with IsNotFound when the product does not exist.
	Get(ctx context.Context, productID string) (domain.Product, error)
	// FindByIDs returns the products that exist; unknown IDs are skipped.
	FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error)
	FindProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	// Search returns text matches with a store-assigned relevance, most relevant first.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)
}

// OrderRepository reads paid order history and the aggregates collaborative filtering needs.
type OrderRepository interface {
	ListPaidByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListPaidByUsers(ctx context.Context, userIDs []string) ([]domain.Order, error)
	// FindUsersByCommonPurchases returns users other than excludeUserID whose paid orders share
	// products with productIDs, ordered by shared count descending.
	FindUsersByCommonPurchases(ctx context.Context, productIDs []string, excludeUserID string, limit int) ([]domain.SimilarUser, error)
	// FindCoPurchasedProducts counts the paid orders each product shares with productID.
	FindCoPurchasedProducts(ctx context.Context, productID string) ([]domain.CoPurchase, error)
}

// ShopperRepository reads the per-user wishlist and cart.
type ShopperRepository interface {
	// Get returns a RepositoryError with IsNotFound when the user does not exist.
	Get(ctx context.Context, userID string) (domain.Shopper, error)
}

// Seeder bulk-loads fixture data. Only the seed command writes through it.
type Seeder interface {
	UpsertProducts(ctx context.Context, products []domain.Product) error
	UpsertOrders(ctx context.Context, orders []domain.Order) error
	UpsertShoppers(ctx context.Context, shoppers []domain.Shopper) error
}

// HealthRepository exposes dependency health information for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Matches reports whether the product satisfies the filter. Stores that cannot express the OR
// query natively apply it in memory.
func (f ProductFilter) Matches(p domain.Product) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.IsEmpty() {
		return true
	}
	for _, c := range f.Categories {
		if p.Category == c {
			return true
		}
	}
	for _, b := range f.Brands {
		if b != "" && p.Brand == b {
			return true
		}
	}
	for _, t := range f.Tags {
		if p.HasTag(t) {
			return true
		}
	}
	return false
}
