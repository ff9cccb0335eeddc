package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
)

// DefaultNeighborLimit caps how many overlapping shoppers feed the collaborative scorer.
const DefaultNeighborLimit = 20

// CoPurchaseScore is a candidate produced by the collaborative scorer before catalog resolution.
type CoPurchaseScore struct {
	ProductID    string
	Orders       int
	AvgPaidPrice float64
}

// PurchasedProducts returns the distinct product IDs across the shopper's paid orders, in
// encounter order.
func PurchasedProducts(orders []domain.Order) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, order := range orders {
		if !order.Paid {
			continue
		}
		for _, id := range order.ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// TopNeighbors keeps the limit users with the largest purchase overlap. Ties keep the order the
// store returned them in. The target user is never its own neighbor.
func TopNeighbors(neighbors []domain.SimilarUser, targetUserID string, limit int) []domain.SimilarUser {
	if limit <= 0 {
		return nil
	}
	filtered := make([]domain.SimilarUser, 0, len(neighbors))
	for _, n := range neighbors {
		if n.UserID == "" || n.UserID == targetUserID || n.Shared <= 0 {
			continue
		}
		filtered = append(filtered, n)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Shared > filtered[j].Shared
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// ScoreNeighborPurchases counts, for every product the target has not bought, how many
// neighbor paid orders contain it, along with the average unit price paid. The result is
// ordered by order count descending with first-encounter order breaking ties.
func ScoreNeighborPurchases(purchased []string, neighbors []domain.SimilarUser, orders []domain.Order, limit int) []CoPurchaseScore {
	if len(purchased) == 0 || len(neighbors) == 0 || limit <= 0 {
		return nil
	}

	owned := make(map[string]struct{}, len(purchased))
	for _, id := range purchased {
		owned[id] = struct{}{}
	}
	neighborSet := make(map[string]struct{}, len(neighbors))
	for _, n := range neighbors {
		neighborSet[n.UserID] = struct{}{}
	}

	type accumulator struct {
		orders     int
		priceTotal float64
		priceLines int
	}
	var (
		order []string
		acc   = make(map[string]*accumulator)
	)

	for _, o := range orders {
		if !o.Paid {
			continue
		}
		if _, ok := neighborSet[o.UserID]; !ok {
			continue
		}
		countedInOrder := make(map[string]struct{}, len(o.Items))
		for _, item := range o.Items {
			if item.ProductID == "" || item.Quantity < 1 {
				continue
			}
			if _, ok := owned[item.ProductID]; ok {
				continue
			}
			a, ok := acc[item.ProductID]
			if !ok {
				a = &accumulator{}
				acc[item.ProductID] = a
				order = append(order, item.ProductID)
			}
			a.priceTotal += item.UnitPrice
			a.priceLines++
			if _, seen := countedInOrder[item.ProductID]; !seen {
				countedInOrder[item.ProductID] = struct{}{}
				a.orders++
			}
		}
	}

	scores := make([]CoPurchaseScore, 0, len(order))
	for _, id := range order {
		a := acc[id]
		score := CoPurchaseScore{ProductID: id, Orders: a.orders}
		if a.priceLines > 0 {
			score.AvgPaidPrice = a.priceTotal / float64(a.priceLines)
		}
		scores = append(scores, score)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Orders > scores[j].Orders
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

// ResolveCollaborative joins scored candidates to catalog records. Products that are missing or
// inactive are dropped without error; order is preserved.
func ResolveCollaborative(scores []CoPurchaseScore, catalog map[string]domain.Product) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, 0, len(scores))
	for _, s := range scores {
		product, ok := catalog[s.ProductID]
		if !ok || !product.Active {
			continue
		}
		out = append(out, domain.ScoredProduct{
			Product:      product,
			Score:        float64(s.Orders),
			Source:       domain.SourceCollaborative,
			AvgPaidPrice: s.AvgPaidPrice,
		})
	}
	return out
}

// CountSharedPurchases finds users other than excludeUserID whose paid orders contain any of
// productIDs, counting the distinct shared products per user. Stores without server-side
// aggregation use it to answer neighbor lookups.
func CountSharedPurchases(productIDs []string, excludeUserID string, orders []domain.Order, limit int) []domain.SimilarUser {
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	var (
		order  []string
		shared = make(map[string]map[string]struct{})
	)
	for _, o := range orders {
		if !o.Paid || o.UserID == "" || o.UserID == excludeUserID {
			continue
		}
		for _, id := range o.ProductIDs() {
			if _, ok := wanted[id]; !ok {
				continue
			}
			set, ok := shared[o.UserID]
			if !ok {
				set = make(map[string]struct{})
				shared[o.UserID] = set
				order = append(order, o.UserID)
			}
			set[id] = struct{}{}
		}
	}
	users := make([]domain.SimilarUser, 0, len(order))
	for _, id := range order {
		users = append(users, domain.SimilarUser{UserID: id, Shared: len(shared[id])})
	}
	return TopNeighbors(users, excludeUserID, limit)
}
