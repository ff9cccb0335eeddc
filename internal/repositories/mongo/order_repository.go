package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/shopfront/api/internal/domain"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/repositories"
)

// OrderRepository reads paid orders and runs the collaborative aggregations server side.
type OrderRepository struct {
	provider *pmongo.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a MongoDB-backed order repository.
func NewOrderRepository(provider *pmongo.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires mongo provider")
	}
	return &OrderRepository{provider: provider}, nil
}

func (r *OrderRepository) ListPaidByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.ListPaidByUsers(ctx, []string{userID})
}

func (r *OrderRepository) ListPaidByUsers(ctx context.Context, userIDs []string) ([]domain.Order, error) {
	if len(userIDs) == 0 {
		return []domain.Order{}, nil
	}
	coll, err := r.provider.Collection(pmongo.OrdersCollection)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{"userId": bson.M{"$in": userIDs}, "paid": true}, opts)
	if err != nil {
		return nil, pmongo.WrapError("orders.list_paid", err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("orders.list_paid", err)
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toDomain())
	}
	return orders, nil
}

func (r *OrderRepository) FindUsersByCommonPurchases(ctx context.Context, productIDs []string, excludeUserID string, limit int) ([]domain.SimilarUser, error) {
	if len(productIDs) == 0 {
		return []domain.SimilarUser{}, nil
	}
	var docs []similarUserDocument
	if err := r.aggregate(ctx, "orders.common_purchases", commonPurchasesPipeline(productIDs, excludeUserID, limit), &docs); err != nil {
		return nil, err
	}
	users := make([]domain.SimilarUser, 0, len(docs))
	for _, doc := range docs {
		users = append(users, domain.SimilarUser{UserID: doc.UserID, Shared: doc.Shared})
	}
	return users, nil
}

func (r *OrderRepository) FindCoPurchasedProducts(ctx context.Context, productID string) ([]domain.CoPurchase, error) {
	var docs []coPurchaseDocument
	if err := r.aggregate(ctx, "orders.co_purchases", coPurchasePipeline(productID), &docs); err != nil {
		return nil, err
	}
	pairs := make([]domain.CoPurchase, 0, len(docs))
	for _, doc := range docs {
		pairs = append(pairs, domain.CoPurchase{ProductID: doc.ProductID, Frequency: doc.Frequency})
	}
	return pairs, nil
}

func (r *OrderRepository) aggregate(ctx context.Context, op string, pipeline any, out any) error {
	coll, err := r.provider.Collection(pmongo.OrdersCollection)
	if err != nil {
		return err
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return pmongo.WrapError(op, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return pmongo.WrapError(op, err)
	}
	return nil
}
