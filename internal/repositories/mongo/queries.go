package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/repositories"
)

// productFilterQuery translates the OR-ed filter into a single $or document.
func productFilterQuery(filter repositories.ProductFilter) bson.M {
	query := bson.M{}
	if filter.ActiveOnly {
		query["active"] = true
	}
	var or bson.A
	if len(filter.Categories) > 0 {
		categories := make(bson.A, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			categories = append(categories, string(c))
		}
		or = append(or, bson.M{"category": bson.M{"$in": categories}})
	}
	if len(filter.Brands) > 0 {
		or = append(or, bson.M{"brand": bson.M{"$in": filter.Brands}})
	}
	var tagKeys []string
	for _, tag := range filter.Tags {
		if key := textutil.Fold(tag); key != "" {
			tagKeys = append(tagKeys, key)
		}
	}
	if len(tagKeys) > 0 {
		or = append(or, bson.M{"tagKeys": bson.M{"$in": tagKeys}})
	}
	if len(or) > 0 {
		query["$or"] = or
	}
	return query
}

// commonPurchasesPipeline counts, per other user, the distinct productIDs their paid orders
// contain.
func commonPurchasesPipeline(productIDs []string, excludeUserID string, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"paid":       true,
			"userId":     bson.M{"$ne": excludeUserID},
			"productIds": bson.M{"$in": productIDs},
		}}},
		{{Key: "$unwind", Value: "$productIds"}},
		{{Key: "$match", Value: bson.M{"productIds": bson.M{"$in": productIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$userId",
			"products": bson.M{"$addToSet": "$productIds"},
		}}},
		{{Key: "$project", Value: bson.M{"shared": bson.M{"$size": "$products"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "shared", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return pipeline
}

// coPurchasePipeline counts the paid orders each other product shares with productID. The
// productIds array is distinct per order, so every order contributes at most once per product.
func coPurchasePipeline(productID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"paid": true, "productIds": productID}}},
		{{Key: "$unwind", Value: "$productIds"}},
		{{Key: "$match", Value: bson.M{"productIds": bson.M{"$ne": productID}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$productIds",
			"frequency": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "frequency", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}
