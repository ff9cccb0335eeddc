package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
)

// productOrder compares two products and returns -1, 0, or 1. Zero falls through to the next key.
type productOrder func(a, b domain.Product) int

func byRating(a, b domain.Product) int  { return compareDesc(a.Rating, b.Rating) }
func bySales(a, b domain.Product) int   { return compareDesc(a.Sales, b.Sales) }
func byViews(a, b domain.Product) int   { return compareDesc(a.Views, b.Views) }
func byRecency(a, b domain.Product) int { return compareDesc(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()) }

func compareDesc[T int64 | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// sortProducts stable-sorts in place using the keys in priority order.
func sortProducts(products []domain.Product, keys ...productOrder) {
	sort.SliceStable(products, func(i, j int) bool {
		for _, key := range keys {
			if c := key(products[i], products[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func activeOnly(products []domain.Product, keep func(domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !p.Active {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit <= 0 {
		return []T{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func scored(products []domain.Product, source domain.RecommendationSource, score func(domain.Product) float64) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, 0, len(products))
	for _, p := range products {
		out = append(out, domain.ScoredProduct{Product: p, Score: score(p), Source: source})
	}
	return out
}
