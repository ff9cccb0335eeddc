package firestore

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/firestore"

	domain "github.com/shopfront/api/internal/domain"
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	"github.com/shopfront/api/internal/recommend"
	"github.com/shopfront/api/internal/repositories"
)

// OrderRepository reads paid order history. Aggregations run in process over the orders the
// productIds array index returns.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
	}, nil
}

func (r *OrderRepository) ListPaidByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).Where("paid", "==", true)
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

func (r *OrderRepository) ListPaidByUsers(ctx context.Context, userIDs []string) ([]domain.Order, error) {
	docs, err := r.base.QueryChunked(ctx, userIDs, func(q firestore.Query, chunk []string) firestore.Query {
		return q.Where("userId", "in", chunk).Where("paid", "==", true)
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

func (r *OrderRepository) FindUsersByCommonPurchases(ctx context.Context, productIDs []string, excludeUserID string, limit int) ([]domain.SimilarUser, error) {
	if len(productIDs) == 0 {
		return []domain.SimilarUser{}, nil
	}
	docs, err := r.base.QueryChunked(ctx, productIDs, func(q firestore.Query, chunk []string) firestore.Query {
		return q.Where("productIds", "array-contains-any", chunk).Where("paid", "==", true)
	})
	if err != nil {
		return nil, err
	}
	return recommend.CountSharedPurchases(productIDs, excludeUserID, decodeOrders(docs), limit), nil
}

func (r *OrderRepository) FindCoPurchasedProducts(ctx context.Context, productID string) ([]domain.CoPurchase, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productIds", "array-contains", productID).Where("paid", "==", true)
	})
	if err != nil {
		return nil, err
	}
	return recommend.CountCoPurchases(productID, decodeOrders(docs)), nil
}

func (r *OrderRepository) upsert(ctx context.Context, orders []domain.Order) error {
	values := make(map[string]orderDocument, len(orders))
	for _, o := range orders {
		values[o.ID] = encodeOrder(o)
	}
	return r.base.SetAll(ctx, values)
}

// decodeOrders returns orders sorted by creation time then ID so aggregations see a stable
// sequence.
func decodeOrders(docs []pfirestore.Document[orderDocument]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc.ID, doc.Data))
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}
