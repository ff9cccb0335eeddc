package recommend

import "github.com/shopfront/api/internal/domain"

// Trending ranks active products by sales, views, rating, then recency. A non-nil category
// restricts the ranking to that category.
func Trending(catalog []domain.Product, category *domain.Category, limit int) []domain.Product {
	candidates := activeOnly(catalog, func(p domain.Product) bool {
		return category == nil || p.Category == *category
	})
	sortProducts(candidates, bySales, byViews, byRating, byRecency)
	return truncate(candidates, limit)
}
