package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
)

// Fuse merges collaborative and content results into one ranking. Duplicates keep their first
// occurrence, so a product found by both scorers carries its collaborative score. Scores are
// compared as-is: collaborative order counts and content sums are not rescaled.
func Fuse(collaborative, content []domain.ScoredProduct, limit int) []domain.ScoredProduct {
	merged := make([]domain.ScoredProduct, 0, len(collaborative)+len(content))
	seen := make(map[string]struct{}, len(collaborative)+len(content))
	for _, list := range [][]domain.ScoredProduct{collaborative, content} {
		for _, item := range list {
			if _, ok := seen[item.Product.ID]; ok {
				continue
			}
			seen[item.Product.ID] = struct{}{}
			merged = append(merged, item)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return truncate(merged, limit)
}
