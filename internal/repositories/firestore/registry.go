package firestore

import (
	"context"
	"errors"

	domain "github.com/shopfront/api/internal/domain"
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	"github.com/shopfront/api/internal/repositories"
)

// Registry wires the Firestore repositories behind repositories.Registry.
type Registry struct {
	provider *pfirestore.Provider
	catalog  *CatalogRepository
	orders   *OrderRepository
	shoppers *ShopperRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	shoppers, err := NewShopperRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, catalog: catalog, orders: orders, shoppers: shoppers}, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx, productsCollection)
}

func (r *Registry) Catalog() repositories.CatalogRepository  { return r.catalog }
func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Shoppers() repositories.ShopperRepository { return r.shoppers }
func (r *Registry) Seeder() repositories.Seeder              { return r }

func (r *Registry) UpsertProducts(ctx context.Context, products []domain.Product) error {
	return r.catalog.upsert(ctx, products)
}

func (r *Registry) UpsertOrders(ctx context.Context, orders []domain.Order) error {
	return r.orders.upsert(ctx, orders)
}

func (r *Registry) UpsertShoppers(ctx context.Context, shoppers []domain.Shopper) error {
	return r.shoppers.upsert(ctx, shoppers)
}
