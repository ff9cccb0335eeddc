package recommend

import (
	"math"
	"sort"

	"github.com/shopfront/api/internal/domain"
)

const (
	preferenceDepth     = 3
	categoryRankWeight  = 3
	brandRankWeight     = 2
	maxPriceBonus       = 2.0
	salesPerQuality     = 100.0
	maxSalesQualityGain = 2.0
)

// ContentTargets returns the top categories and brands that select content candidates.
func ContentTargets(prefs domain.PreferenceSnapshot) ([]domain.Category, []string) {
	return head(prefs.Categories, preferenceDepth), head(prefs.Brands, preferenceDepth)
}

// ContentBased scores catalog products against the preference snapshot. Without a category
// signal it falls back to ColdStart.
func ContentBased(prefs domain.PreferenceSnapshot, catalog []domain.Product, limit int) []domain.ScoredProduct {
	if !prefs.HasCategorySignal() {
		return ColdStart(catalog, limit)
	}
	categories, brands := ContentTargets(prefs)
	candidates := activeOnly(catalog, func(p domain.Product) bool {
		return rankOf(categories, p.Category) >= 0 || rankOf(brands, p.Brand) >= 0
	})

	results := scored(candidates, domain.SourceContentBased, func(p domain.Product) float64 {
		return ContentScore(prefs, p)
	})
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return truncate(results, limit)
}

// ContentScore is categoryBonus + brandBonus + priceBonus + qualityBonus for one product.
func ContentScore(prefs domain.PreferenceSnapshot, p domain.Product) float64 {
	categories, brands := ContentTargets(prefs)

	var score float64
	if rank := rankOf(categories, p.Category); rank >= 0 {
		score += float64((preferenceDepth - rank) * categoryRankWeight)
	}
	if rank := rankOf(brands, p.Brand); rank >= 0 {
		score += float64((preferenceDepth - rank) * brandRankWeight)
	}
	if avg := prefs.PriceRange.Avg; avg > 0 {
		score += math.Max(0, maxPriceBonus-math.Abs(p.Price-avg)/avg)
	}
	score += qualityBonus(p)
	return score
}

// ColdStart ranks active products by rating then sales. The score carried is the rating.
func ColdStart(catalog []domain.Product, limit int) []domain.ScoredProduct {
	candidates := activeOnly(catalog, nil)
	sortProducts(candidates, byRating, bySales)
	candidates = truncate(candidates, limit)
	return scored(candidates, domain.SourceContentBased, func(p domain.Product) float64 {
		return p.Rating
	})
}

func qualityBonus(p domain.Product) float64 {
	return p.Rating + math.Min(float64(p.Sales)/salesPerQuality, maxSalesQualityGain)
}

func rankOf[T comparable](ranked []T, value T) int {
	var zero T
	if value == zero {
		return -1
	}
	for i, v := range ranked {
		if v == value {
			return i
		}
	}
	return -1
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
