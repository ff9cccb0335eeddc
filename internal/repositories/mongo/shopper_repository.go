package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	domain "github.com/shopfront/api/internal/domain"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/repositories"
)

// ShopperRepository reads wishlist and cart documents keyed by user ID.
type ShopperRepository struct {
	provider *pmongo.Provider
}

var _ repositories.ShopperRepository = (*ShopperRepository)(nil)

// NewShopperRepository constructs a MongoDB-backed shopper repository.
func NewShopperRepository(provider *pmongo.Provider) (*ShopperRepository, error) {
	if provider == nil {
		return nil, errors.New("shopper repository requires mongo provider")
	}
	return &ShopperRepository{provider: provider}, nil
}

func (r *ShopperRepository) Get(ctx context.Context, userID string) (domain.Shopper, error) {
	coll, err := r.provider.Collection(pmongo.ShoppersCollection)
	if err != nil {
		return domain.Shopper{}, err
	}
	var doc shopperDocument
	if err := coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.Shopper{}, pmongo.WrapError("shoppers.get", err)
	}
	return domain.Shopper{ID: doc.ID, Wishlist: doc.Wishlist, Cart: doc.Cart}, nil
}
