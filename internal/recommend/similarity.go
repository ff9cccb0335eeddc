package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
)

// Similar returns active products other than target that share its category, brand, or any tag,
// ranked by rating then sales.
func Similar(target domain.Product, catalog []domain.Product, limit int) []domain.Product {
	candidates := activeOnly(catalog, func(p domain.Product) bool {
		if p.ID == target.ID {
			return false
		}
		if p.Category == target.Category && p.Category != "" {
			return true
		}
		if p.Brand == target.Brand && p.Brand != "" {
			return true
		}
		for _, tag := range target.Tags {
			if p.HasTag(tag) {
				return true
			}
		}
		return false
	})
	sortProducts(candidates, byRating, bySales)
	return truncate(candidates, limit)
}

// FrequentlyBoughtTogether ranks co-purchased products by how often they share a paid order with
// the target. Missing or inactive products are skipped.
func FrequentlyBoughtTogether(targetID string, coPurchases []domain.CoPurchase, catalog map[string]domain.Product, limit int) []domain.ScoredProduct {
	ranked := make([]domain.CoPurchase, 0, len(coPurchases))
	for _, cp := range coPurchases {
		if cp.ProductID == "" || cp.ProductID == targetID || cp.Frequency <= 0 {
			continue
		}
		ranked = append(ranked, cp)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})

	out := make([]domain.ScoredProduct, 0, len(ranked))
	for _, cp := range ranked {
		product, ok := catalog[cp.ProductID]
		if !ok || !product.Active {
			continue
		}
		out = append(out, domain.ScoredProduct{
			Product: product,
			Score:   float64(cp.Frequency),
			Source:  domain.SourceBoughtTogether,
		})
	}
	return truncate(out, limit)
}

// CountCoPurchases tallies, across paid orders containing targetID, how many orders include each
// other product. Stores without server-side aggregation use it to answer co-purchase lookups.
func CountCoPurchases(targetID string, orders []domain.Order) []domain.CoPurchase {
	var (
		order  []string
		counts = make(map[string]int)
	)
	for _, o := range orders {
		if !o.Paid {
			continue
		}
		ids := o.ProductIDs()
		if rankOf(ids, targetID) < 0 {
			continue
		}
		for _, id := range ids {
			if id == targetID {
				continue
			}
			if _, ok := counts[id]; !ok {
				order = append(order, id)
			}
			counts[id]++
		}
	}
	out := make([]domain.CoPurchase, 0, len(order))
	for _, id := range order {
		out = append(out, domain.CoPurchase{ProductID: id, Frequency: counts[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})
	return out
}

// TrendingInCategory ranks active products in the target's category by sales, views, then
// recency. The target itself is excluded.
func TrendingInCategory(target domain.Product, catalog []domain.Product, limit int) []domain.Product {
	candidates := activeOnly(catalog, func(p domain.Product) bool {
		return p.ID != target.ID && p.Category == target.Category
	})
	sortProducts(candidates, bySales, byViews, byRecency)
	return truncate(candidates, limit)
}
