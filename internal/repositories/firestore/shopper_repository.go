package firestore

import (
	"context"
	"errors"

	domain "github.com/shopfront/api/internal/domain"
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	"github.com/shopfront/api/internal/repositories"
)

// ShopperRepository reads wishlist and cart documents keyed by user ID.
type ShopperRepository struct {
	base *pfirestore.BaseRepository[shopperDocument]
}

var _ repositories.ShopperRepository = (*ShopperRepository)(nil)

// NewShopperRepository constructs a Firestore-backed shopper repository.
func NewShopperRepository(provider *pfirestore.Provider) (*ShopperRepository, error) {
	if provider == nil {
		return nil, errors.New("shopper repository requires firestore provider")
	}
	return &ShopperRepository{
		base: pfirestore.NewBaseRepository[shopperDocument](provider, shoppersCollection, nil, nil),
	}, nil
}

func (r *ShopperRepository) Get(ctx context.Context, userID string) (domain.Shopper, error) {
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Shopper{}, err
	}
	return domain.Shopper{
		ID:       doc.ID,
		Wishlist: doc.Data.Wishlist,
		Cart:     doc.Data.Cart,
	}, nil
}

func (r *ShopperRepository) upsert(ctx context.Context, shoppers []domain.Shopper) error {
	values := make(map[string]shopperDocument, len(shoppers))
	for _, s := range shoppers {
		values[s.ID] = shopperDocument{Wishlist: s.Wishlist, Cart: s.Cart}
	}
	return r.base.SetAll(ctx, values)
}
