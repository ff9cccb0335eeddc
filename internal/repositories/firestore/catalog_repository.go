package firestore

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/firestore"

	domain "github.com/shopfront/api/internal/domain"
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/recommend"
	"github.com/shopfront/api/internal/repositories"
)

// CatalogRepository reads product documents from the products collection.
type CatalogRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc.ID, doc.Data), nil
}

func (r *CatalogRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	docs, err := r.base.GetAll(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	return decodeProducts(docs), nil
}

// FindProducts issues one query per populated filter field and unions the results, since
// Firestore cannot OR across fields with "in" and "array-contains-any".
func (r *CatalogRepository) FindProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	active := func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		return q
	}

	if filter.IsEmpty() {
		docs, err := r.base.Query(ctx, active)
		if err != nil {
			return nil, err
		}
		return decodeProducts(docs), nil
	}

	categories := make([]string, 0, len(filter.Categories))
	for _, c := range filter.Categories {
		categories = append(categories, string(c))
	}
	var tagKeys []string
	for _, tag := range filter.Tags {
		if key := textutil.Fold(tag); key != "" {
			tagKeys = append(tagKeys, key)
		}
	}

	fields := []struct {
		path   string
		op     string
		values []string
	}{
		{"category", "in", categories},
		{"brand", "in", filter.Brands},
		{"tagKeys", "array-contains-any", tagKeys},
	}

	var (
		all  []pfirestore.Document[productDocument]
		seen = make(map[string]struct{})
	)
	for _, field := range fields {
		if len(field.values) == 0 {
			continue
		}
		field := field
		docs, err := r.base.QueryChunked(ctx, field.values, func(q firestore.Query, chunk []string) firestore.Query {
			return active(q.Where(field.path, field.op, chunk))
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if _, ok := seen[doc.ID]; ok {
				continue
			}
			seen[doc.ID] = struct{}{}
			all = append(all, doc)
		}
	}
	return decodeProducts(all), nil
}

// Search matches query tokens against the precomputed searchTokens array and scores the
// candidates with the weighted field relevance.
func (r *CatalogRepository) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	tokens := textutil.Tokens(query)
	if len(tokens) == 0 {
		return []domain.SearchHit{}, nil
	}
	docs, err := r.base.QueryChunked(ctx, tokens, func(q firestore.Query, chunk []string) firestore.Query {
		return q.Where("searchTokens", "array-contains-any", chunk).Where("active", "==", true)
	})
	if err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(docs))
	for _, p := range decodeProducts(docs) {
		hits = append(hits, domain.SearchHit{Product: p, Relevance: recommend.TextRelevance(tokens, p)})
	}
	return recommend.RankSearchResults(hits, limit), nil
}

func (r *CatalogRepository) upsert(ctx context.Context, products []domain.Product) error {
	values := make(map[string]productDocument, len(products))
	for _, p := range products {
		values[p.ID] = encodeProduct(p)
	}
	return r.base.SetAll(ctx, values)
}

func decodeProducts(docs []pfirestore.Document[productDocument]) []domain.Product {
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProduct(doc.ID, doc.Data))
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}
