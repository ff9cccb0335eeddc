package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/shopfront/api/internal/domain"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/recommend"
	"github.com/shopfront/api/internal/repositories"
)

// CatalogRepository reads products from the products collection.
type CatalogRepository struct {
	provider *pmongo.Provider
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository constructs a MongoDB-backed catalog repository.
func NewCatalogRepository(provider *pmongo.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires mongo provider")
	}
	return &CatalogRepository{provider: provider}, nil
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (domain.Product, error) {
	coll, err := r.provider.Collection(pmongo.ProductsCollection)
	if err != nil {
		return domain.Product{}, err
	}
	var doc productDocument
	if err := coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		return domain.Product{}, pmongo.WrapError("products.get", err)
	}
	return doc.toDomain(), nil
}

func (r *CatalogRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return []domain.Product{}, nil
	}
	return r.find(ctx, "products.find_by_ids", bson.M{"_id": bson.M{"$in": productIDs}})
}

func (r *CatalogRepository) FindProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	return r.find(ctx, "products.find", productFilterQuery(filter))
}

// Search runs a $text query against the weighted products_text index and reports the text
// score as relevance. Tokens are rejoined so a leading '-' cannot turn into a negation.
func (r *CatalogRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	tokens := textutil.Tokens(query)
	if len(tokens) == 0 {
		return []domain.SearchHit{}, nil
	}
	coll, err := r.provider.Collection(pmongo.ProductsCollection)
	if err != nil {
		return nil, err
	}
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}, {Key: "rating", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, bson.M{"$text": bson.M{"$search": strings.Join(tokens, " ")}, "active": true}, opts)
	if err != nil {
		return nil, pmongo.WrapError("products.search", err)
	}
	var docs []scoredProductDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError("products.search", err)
	}

	hits := make([]domain.SearchHit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, domain.SearchHit{Product: doc.toDomain(), Relevance: doc.Score})
	}
	return recommend.RankSearchResults(hits, limit), nil
}

func (r *CatalogRepository) find(ctx context.Context, op string, filter bson.M) ([]domain.Product, error) {
	coll, err := r.provider.Collection(pmongo.ProductsCollection)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pmongo.WrapError(op, err)
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}
