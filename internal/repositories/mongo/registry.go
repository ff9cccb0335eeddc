package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/shopfront/api/internal/domain"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/repositories"
)

// Registry wires the MongoDB repositories behind repositories.Registry.
type Registry struct {
	provider *pmongo.Provider
	catalog  *CatalogRepository
	orders   *OrderRepository
	shoppers *ShopperRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every MongoDB repository against the shared provider.
func NewRegistry(provider *pmongo.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("mongo registry requires provider")
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
func (r *Registry) Ping(ctx context.Context) error  { return r.provider.Ping(ctx) }

func (r *Registry) Catalog() repositories.CatalogRepository  { return r.catalog }
func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Shoppers() repositories.ShopperRepository { return r.shoppers }
func (r *Registry) Seeder() repositories.Seeder              { return r }

func (r *Registry) UpsertProducts(ctx context.Context, products []domain.Product) error {
	models := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		models = append(models, replaceByID(p.ID, encodeProduct(p)))
	}
	return r.bulkWrite(ctx, pmongo.ProductsCollection, models)
}

func (r *Registry) UpsertOrders(ctx context.Context, orders []domain.Order) error {
	models := make([]mongo.WriteModel, 0, len(orders))
	for _, o := range orders {
		models = append(models, replaceByID(o.ID, encodeOrder(o)))
	}
	return r.bulkWrite(ctx, pmongo.OrdersCollection, models)
}

func (r *Registry) UpsertShoppers(ctx context.Context, shoppers []domain.Shopper) error {
	models := make([]mongo.WriteModel, 0, len(shoppers))
	for _, s := range shoppers {
		doc := shopperDocument{ID: s.ID, Wishlist: s.Wishlist, Cart: s.Cart}
		if doc.Wishlist == nil {
			doc.Wishlist = []string{}
		}
		if doc.Cart == nil {
			doc.Cart = []string{}
		}
		models = append(models, replaceByID(s.ID, doc))
	}
	return r.bulkWrite(ctx, pmongo.ShoppersCollection, models)
}

func replaceByID(id string, doc any) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": id}).
		SetReplacement(doc).
		SetUpsert(true)
}

func (r *Registry) bulkWrite(ctx context.Context, collection string, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	coll, err := r.provider.Collection(collection)
	if err != nil {
		return err
	}
	if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return pmongo.WrapError(collection+".bulk_write", err)
	}
	return nil
}
