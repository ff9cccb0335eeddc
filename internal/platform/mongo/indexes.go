package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the repositories and the index bootstrap.
const (
	ProductsCollection = "products"
	OrdersCollection   = "orders"
	ShoppersCollection = "shoppers"
)

// TextIndexWeights are the per-field weights of the products text index.
var TextIndexWeights = bson.D{
	{Key: "name", Value: 10},
	{Key: "tags", Value: 5},
	{Key: "brand", Value: 3},
	{Key: "description", Value: 1},
}

// EnsureIndexes creates the indexes the recommendation queries rely on. Creating an index that
// already exists with the same definition is a no-op.
func EnsureIndexes(ctx context.Context, p *Provider) error {
	specs := map[string][]mongo.IndexModel{
		ProductsCollection: {
			{
				Keys: bson.D{
					{Key: "name", Value: "text"},
					{Key: "tags", Value: "text"},
					{Key: "brand", Value: "text"},
					{Key: "description", Value: "text"},
				},
				Options: options.Index().
					SetName("products_text").
					SetWeights(TextIndexWeights).
					SetDefaultLanguage("none"),
			},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "brand", Value: 1}}},
			{Keys: bson.D{{Key: "tagKeys", Value: 1}}},
			{Keys: bson.D{{Key: "sales", Value: -1}, {Key: "views", Value: -1}}},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "paid", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "productIds", Value: 1}, {Key: "paid", Value: 1}}},
		},
	}

	for name, models := range specs {
		coll, err := p.Collection(name)
		if err != nil {
			return err
		}
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: create indexes on %s: %w", name, WrapError(name+".indexes", err))
		}
	}
	return nil
}
