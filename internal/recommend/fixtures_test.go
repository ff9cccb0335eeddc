package recommend

import (
	"time"

	"github.com/shopfront/api/internal/domain"
)

var baseTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func product(id string, category domain.Category, brand string, opts ...func(*domain.Product)) domain.Product {
	p := domain.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  category,
		Brand:     brand,
		Price:     10,
		Active:    true,
		CreatedAt: baseTime,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func withRating(r float64) func(*domain.Product) { return func(p *domain.Product) { p.Rating = r } }
func withSales(s int64) func(*domain.Product)    { return func(p *domain.Product) { p.Sales = s } }
func withViews(v int64) func(*domain.Product)    { return func(p *domain.Product) { p.Views = v } }
func withPrice(v float64) func(*domain.Product)  { return func(p *domain.Product) { p.Price = v } }
func withTags(tags ...string) func(*domain.Product) {
	return func(p *domain.Product) { p.Tags = tags }
}
func withCreatedAt(t time.Time) func(*domain.Product) {
	return func(p *domain.Product) { p.CreatedAt = t }
}
func inactive() func(*domain.Product) { return func(p *domain.Product) { p.Active = false } }

func paidOrder(id, user string, items ...domain.OrderItem) domain.Order {
	return domain.Order{ID: id, UserID: user, Items: items, Paid: true, CreatedAt: baseTime}
}

func line(productID string, price float64, qty int) domain.OrderItem {
	return domain.OrderItem{ProductID: productID, UnitPrice: price, Quantity: qty}
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func scoredIDs(items []domain.ScoredProduct) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Product.ID)
	}
	return out
}

func catalogIndex(products ...domain.Product) map[string]domain.Product {
	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}
