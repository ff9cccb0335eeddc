// Package memory provides an in-process store backend used for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/fixtures"
	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/recommend"
	"github.com/shopfront/api/internal/repositories"
)

// Store keeps products, orders, and shoppers in maps guarded by a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	shoppers map[string]domain.Shopper
}

var _ repositories.Registry = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		shoppers: make(map[string]domain.Shopper),
	}
}

// NewStoreFromDataset returns a store preloaded with the dataset.
func NewStoreFromDataset(data fixtures.Dataset) *Store {
	s := NewStore()
	ctx := context.Background()
	_ = s.UpsertProducts(ctx, data.Products)
	_ = s.UpsertOrders(ctx, data.Orders)
	_ = s.UpsertShoppers(ctx, data.Shoppers)
	return s
}

func (s *Store) Close(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error  { return nil }

func (s *Store) Catalog() repositories.CatalogRepository  { return catalogRepository{s} }
func (s *Store) Orders() repositories.OrderRepository     { return orderRepository{s} }
func (s *Store) Shoppers() repositories.ShopperRepository { return shopperRepository{s} }
func (s *Store) Seeder() repositories.Seeder              { return s }

func (s *Store) UpsertProducts(_ context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		p.Tags = append([]string(nil), p.Tags...)
		s.products[p.ID] = p
	}
	return nil
}

func (s *Store) UpsertOrders(_ context.Context, orders []domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		s.orders[o.ID] = o
	}
	return nil
}

func (s *Store) UpsertShoppers(_ context.Context, shoppers []domain.Shopper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range shoppers {
		sh.Wishlist = append([]string(nil), sh.Wishlist...)
		sh.Cart = append([]string(nil), sh.Cart...)
		s.shoppers[sh.ID] = sh
	}
	return nil
}

// sortedProducts returns every product matching keep, ordered by ID.
func (s *Store) sortedProducts(keep func(domain.Product) bool) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// paidOrders returns paid orders ordered by creation time then ID.
func (s *Store) paidOrders(keep func(domain.Order) bool) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.Paid && keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type catalogRepository struct{ s *Store }

func (r catalogRepository) Get(ctx context.Context, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	r.s.mu.RLock()
	p, ok := r.s.products[productID]
	r.s.mu.RUnlock()
	if !ok {
		return domain.Product{}, repositories.NewNotFoundError("memory.catalog.get", "product %q not found", productID)
	}
	return p, nil
}

func (r catalogRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	return r.s.sortedProducts(func(p domain.Product) bool {
		_, ok := wanted[p.ID]
		return ok
	}), nil
}

func (r catalogRepository) FindProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.s.sortedProducts(filter.Matches), nil
}

func (r catalogRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := textutil.Tokens(query)
	if len(tokens) == 0 {
		return []domain.SearchHit{}, nil
	}
	var hits []domain.SearchHit
	for _, p := range r.s.sortedProducts(func(p domain.Product) bool { return p.Active }) {
		hits = append(hits, domain.SearchHit{Product: p, Relevance: recommend.TextRelevance(tokens, p)})
	}
	return recommend.RankSearchResults(hits, limit), nil
}

type orderRepository struct{ s *Store }

func (r orderRepository) ListPaidByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.ListPaidByUsers(ctx, []string{userID})
}

func (r orderRepository) ListPaidByUsers(ctx context.Context, userIDs []string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	return r.s.paidOrders(func(o domain.Order) bool {
		_, ok := wanted[o.UserID]
		return ok
	}), nil
}

func (r orderRepository) FindUsersByCommonPurchases(ctx context.Context, productIDs []string, excludeUserID string, limit int) ([]domain.SimilarUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return []domain.SimilarUser{}, nil
	}
	orders := r.s.paidOrders(func(domain.Order) bool { return true })
	return recommend.CountSharedPurchases(productIDs, excludeUserID, orders, limit), nil
}

func (r orderRepository) FindCoPurchasedProducts(ctx context.Context, productID string) ([]domain.CoPurchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders := r.s.paidOrders(func(domain.Order) bool { return true })
	return recommend.CountCoPurchases(productID, orders), nil
}

type shopperRepository struct{ s *Store }

func (r shopperRepository) Get(ctx context.Context, userID string) (domain.Shopper, error) {
	if err := ctx.Err(); err != nil {
		return domain.Shopper{}, err
	}
	r.s.mu.RLock()
	sh, ok := r.s.shoppers[userID]
	r.s.mu.RUnlock()
	if !ok {
		return domain.Shopper{}, repositories.NewNotFoundError("memory.shoppers.get", "shopper %q not found", userID)
	}
	return sh, nil
}
