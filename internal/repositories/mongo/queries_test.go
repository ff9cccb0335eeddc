package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/repositories"
)

func TestProductFilterQuery(t *testing.T) {
	query := productFilterQuery(repositories.ProductFilter{
		Categories: []domain.Category{domain.CategoryElectronics},
		Tags:       []string{" Outdoor ", ""},
		ActiveOnly: true,
	})

	if query["active"] != true {
		t.Fatalf("expected active constraint, got %v", query)
	}
	or, ok := query["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %#v", query["$or"])
	}
	tags := or[1].(bson.M)["tagKeys"].(bson.M)["$in"].([]string)
	if len(tags) != 1 || tags[0] != "outdoor" {
		t.Fatalf("expected folded tag keys, got %v", tags)
	}
}

func TestProductFilterQueryEmpty(t *testing.T) {
	query := productFilterQuery(repositories.ProductFilter{})
	if len(query) != 0 {
		t.Fatalf("expected match-all query, got %v", query)
	}
}

func TestCommonPurchasesPipelineLimit(t *testing.T) {
	withLimit := commonPurchasesPipeline([]string{"p1"}, "u1", 20)
	withoutLimit := commonPurchasesPipeline([]string{"p1"}, "u1", 0)

	if len(withLimit) != len(withoutLimit)+1 {
		t.Fatalf("expected limit stage only when limit > 0")
	}
	last := withLimit[len(withLimit)-1]
	if last[0].Key != "$limit" || last[0].Value != 20 {
		t.Fatalf("expected trailing $limit 20, got %v", last)
	}
	match := withLimit[0][0].Value.(bson.M)
	if match["userId"].(bson.M)["$ne"] != "u1" {
		t.Fatalf("expected requesting user excluded, got %v", match)
	}
}

func TestEncodeOrderStoresDistinctProductIDs(t *testing.T) {
	doc := encodeOrder(domain.Order{
		ID:     "o1",
		UserID: "u1",
		Items:  []domain.OrderItem{{ProductID: "a"}, {ProductID: "a"}, {ProductID: "b"}},
	})
	if len(doc.ProductIDs) != 2 {
		t.Fatalf("expected 2 distinct product ids, got %v", doc.ProductIDs)
	}
	if got := doc.toDomain(); len(got.Items) != 3 {
		t.Fatalf("expected items preserved, got %+v", got.Items)
	}
}
