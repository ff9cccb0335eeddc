package firestore

import (
	"time"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/recommend"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	shoppersCollection = "shoppers"
)

type productDocument struct {
	Name         string    `firestore:"name"`
	Description  string    `firestore:"description"`
	Category     string    `firestore:"category"`
	Brand        string    `firestore:"brand"`
	Price        float64   `firestore:"price"`
	Tags         []string  `firestore:"tags"`
	TagKeys      []string  `firestore:"tagKeys"`
	SearchTokens []string  `firestore:"searchTokens"`
	Rating       float64   `firestore:"rating"`
	Sales        int64     `firestore:"sales"`
	Views        int64     `firestore:"views"`
	Active       bool      `firestore:"active"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type orderItemDocument struct {
	ProductID string  `firestore:"productId"`
	UnitPrice float64 `firestore:"unitPrice"`
	Quantity  int     `firestore:"quantity"`
}

type orderDocument struct {
	UserID     string              `firestore:"userId"`
	Items      []orderItemDocument `firestore:"items"`
	ProductIDs []string            `firestore:"productIds"`
	Paid       bool                `firestore:"paid"`
	CreatedAt  time.Time           `firestore:"createdAt"`
}

type shopperDocument struct {
	Wishlist []string `firestore:"wishlist"`
	Cart     []string `firestore:"cart"`
}

func encodeProduct(p domain.Product) productDocument {
	doc := productDocument{
		Name:         p.Name,
		Description:  p.Description,
		Category:     string(p.Category),
		Brand:        p.Brand,
		Price:        p.Price,
		Tags:         append([]string(nil), p.Tags...),
		SearchTokens: recommend.SearchTokens(p),
		Rating:       p.Rating,
		Sales:        p.Sales,
		Views:        p.Views,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt.UTC(),
	}
	for _, tag := range p.Tags {
		if key := textutil.Fold(tag); key != "" {
			doc.TagKeys = append(doc.TagKeys, key)
		}
	}
	return doc
}

func decodeProduct(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Category:    domain.Category(doc.Category),
		Brand:       doc.Brand,
		Price:       doc.Price,
		Tags:        doc.Tags,
		Rating:      doc.Rating,
		Sales:       doc.Sales,
		Views:       doc.Views,
		Active:      doc.Active,
		CreatedAt:   doc.CreatedAt,
	}
}

func encodeOrder(o domain.Order) orderDocument {
	doc := orderDocument{
		UserID:     o.UserID,
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

func decodeOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:        id,
		UserID:    doc.UserID,
		Paid:      doc.Paid,
		CreatedAt: doc.CreatedAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return order
}
