package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
)

const (
	wishlistWeight = 0.5
	cartWeight     = 0.3
)

// PurchaseLine is a paid order line joined with the product it references.
type PurchaseLine struct {
	Product   domain.Product
	UnitPrice float64
	Quantity  int
}

// ExtractPreferences derives the weighted preference profile for one shopper. Purchases weigh
// by quantity, wishlist entries by 0.5, and cart entries by 0.3. It never fails: missing history
// yields an empty snapshot.
func ExtractPreferences(purchases []PurchaseLine, wishlist, cart []domain.Product) domain.PreferenceSnapshot {
	categories := newWeights[domain.Category]()
	brands := newWeights[string]()

	var (
		spend    float64
		items    int
		maxPrice float64
		hasMax   bool
	)
	for _, line := range purchases {
		if line.Quantity < 1 {
			continue
		}
		qty := float64(line.Quantity)
		categories.add(line.Product.Category, qty)
		brands.add(line.Product.Brand, qty)
		spend += line.UnitPrice * qty
		items += line.Quantity
		if !hasMax || line.UnitPrice > maxPrice {
			maxPrice = line.UnitPrice
			hasMax = true
		}
	}

	for _, product := range wishlist {
		categories.add(product.Category, wishlistWeight)
		brands.add(product.Brand, wishlistWeight)
	}
	for _, product := range cart {
		categories.add(product.Category, cartWeight)
		brands.add(product.Brand, cartWeight)
	}

	snapshot := domain.PreferenceSnapshot{
		Categories: categories.ranked(),
		Brands:     brands.ranked(),
		TotalItems: items,
	}
	if items > 0 {
		snapshot.PriceRange.Avg = spend / float64(items)
	}
	if hasMax {
		snapshot.PriceRange.Max = &maxPrice
	}
	return snapshot
}

type weightedKey[K comparable] struct {
	key    K
	weight float64
}

// weights accumulates per-key weight and remembers first-encounter order for tie breaks.
type weights[K comparable] struct {
	entries []weightedKey[K]
	index   map[K]int
}

func newWeights[K comparable]() *weights[K] {
	return &weights[K]{index: make(map[K]int)}
}

func (w *weights[K]) add(key K, weight float64) {
	var zero K
	if key == zero || weight <= 0 {
		return
	}
	if i, ok := w.index[key]; ok {
		w.entries[i].weight += weight
		return
	}
	w.index[key] = len(w.entries)
	w.entries = append(w.entries, weightedKey[K]{key: key, weight: weight})
}

func (w *weights[K]) ranked() []K {
	sorted := make([]weightedKey[K], len(w.entries))
	copy(sorted, w.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].weight > sorted[j].weight
	})
	out := make([]K, 0, len(sorted))
	for _, entry := range sorted {
		out = append(out, entry.key)
	}
	return out
}
