package mongo

import (
	"time"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/platform/textutil"
)

type productDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Category    string    `bson:"category"`
	Brand       string    `bson:"brand"`
	Price       float64   `bson:"price"`
	Tags        []string  `bson:"tags"`
	TagKeys     []string  `bson:"tagKeys"`
	Rating      float64   `bson:"rating"`
	Sales       int64     `bson:"sales"`
	Views       int64     `bson:"views"`
	Active      bool      `bson:"active"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type scoredProductDocument struct {
	productDocument `bson:",inline"`
	Score           float64 `bson:"score"`
}

type orderItemDocument struct {
	ProductID string  `bson:"productId"`
	UnitPrice float64 `bson:"unitPrice"`
	Quantity  int     `bson:"quantity"`
}

type orderDocument struct {
	ID         string              `bson:"_id"`
	UserID     string              `bson:"userId"`
	Items      []orderItemDocument `bson:"items"`
	ProductIDs []string            `bson:"productIds"`
	Paid       bool                `bson:"paid"`
	CreatedAt  time.Time           `bson:"createdAt"`
}

type shopperDocument struct {
	ID       string   `bson:"_id"`
	Wishlist []string `bson:"wishlist"`
	Cart     []string `bson:"cart"`
}

type similarUserDocument struct {
	UserID string `bson:"_id"`
	Shared int    `bson:"shared"`
}

type coPurchaseDocument struct {
	ProductID string `bson:"_id"`
	Frequency int    `bson:"frequency"`
}

func encodeProduct(p domain.Product) productDocument {
	doc := productDocument{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Brand:       p.Brand,
		Price:       p.Price,
		Tags:        append([]string{}, p.Tags...),
		TagKeys:     []string{},
		Rating:      p.Rating,
		Sales:       p.Sales,
		Views:       p.Views,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.UTC(),
	}
	for _, tag := range p.Tags {
		if key := textutil.Fold(tag); key != "" {
			doc.TagKeys = append(doc.TagKeys, key)
		}
	}
	return doc
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		Brand:       d.Brand,
		Price:       d.Price,
		Tags:        d.Tags,
		Rating:      d.Rating,
		Sales:       d.Sales,
		Views:       d.Views,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
	}
}

func encodeOrder(o domain.Order) orderDocument {
	doc := orderDocument{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      []orderItemDocument{},
		ProductIDs: o.ProductIDs(),
		Paid:       o.Paid,
		CreatedAt:  o.CreatedAt.UTC(),
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	order := domain.Order{
		ID:        d.ID,
		UserID:    d.UserID,
		Paid:      d.Paid,
		CreatedAt: d.CreatedAt,
	}
	for _, item := range d.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return order
}
