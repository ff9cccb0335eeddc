// Package fixtures loads catalog, order, and shopper seed data from YAML.
package fixtures

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/shopfront/api/internal/domain"
)

// Dataset is a decoded fixture file.
type Dataset struct {
	Products []domain.Product
	Orders   []domain.Order
	Shoppers []domain.Shopper
}

type fileDocument struct {
	Products []productDocument `yaml:"products"`
	Orders   []orderDocument   `yaml:"orders"`
	Shoppers []shopperDocument `yaml:"shoppers"`
}

type productDocument struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Category    string    `yaml:"category"`
	Brand       string    `yaml:"brand"`
	Price       float64   `yaml:"price"`
	Tags        []string  `yaml:"tags"`
	Rating      float64   `yaml:"rating"`
	Sales       int64     `yaml:"sales"`
	Views       int64     `yaml:"views"`
	Active      *bool     `yaml:"active"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

type orderDocument struct {
	ID        string         `yaml:"id"`
	UserID    string         `yaml:"userId"`
	Paid      *bool          `yaml:"paid"`
	CreatedAt time.Time      `yaml:"createdAt"`
	Items     []itemDocument `yaml:"items"`
}

type itemDocument struct {
	ProductID string  `yaml:"productId"`
	UnitPrice float64 `yaml:"unitPrice"`
	Quantity  int     `yaml:"quantity"`
}

type shopperDocument struct {
	ID       string   `yaml:"id"`
	Wishlist []string `yaml:"wishlist"`
	Cart     []string `yaml:"cart"`
}

// LoadFile decodes the fixture at path.
func LoadFile(path string, now time.Time) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("fixtures: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, now)
}

// Load decodes a fixture. Missing IDs are generated, active and paid default to true, and zero
// timestamps default to now.
func Load(r io.Reader, now time.Time) (Dataset, error) {
	var doc fileDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Dataset{}, fmt.Errorf("fixtures: parse yaml: %w", err)
	}

	now = now.UTC()
	var out Dataset
	for i, p := range doc.Products {
		category, ok := domain.ParseCategory(p.Category)
		if !ok {
			return Dataset{}, fmt.Errorf("fixtures: product %d: unknown category %q", i, p.Category)
		}
		if err := validateProduct(p); err != nil {
			return Dataset{}, fmt.Errorf("fixtures: product %d: %w", i, err)
		}
		out.Products = append(out.Products, domain.Product{
			ID:          idOrNew(p.ID),
			Name:        strings.TrimSpace(p.Name),
			Description: strings.TrimSpace(p.Description),
			Category:    category,
			Brand:       strings.TrimSpace(p.Brand),
			Price:       p.Price,
			Tags:        p.Tags,
			Rating:      p.Rating,
			Sales:       p.Sales,
			Views:       p.Views,
			Active:      boolOrTrue(p.Active),
			CreatedAt:   timeOr(p.CreatedAt, now),
		})
	}
	for i, o := range doc.Orders {
		if strings.TrimSpace(o.UserID) == "" {
			return Dataset{}, fmt.Errorf("fixtures: order %d: userId is required", i)
		}
		order := domain.Order{
			ID:        idOrNew(o.ID),
			UserID:    strings.TrimSpace(o.UserID),
			Paid:      boolOrTrue(o.Paid),
			CreatedAt: timeOr(o.CreatedAt, now),
		}
		for j, item := range o.Items {
			if item.Quantity < 1 {
				return Dataset{}, fmt.Errorf("fixtures: order %d item %d: quantity must be at least 1", i, j)
			}
			if item.UnitPrice < 0 {
				return Dataset{}, fmt.Errorf("fixtures: order %d item %d: unitPrice must not be negative", i, j)
			}
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: strings.TrimSpace(item.ProductID),
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			})
		}
		out.Orders = append(out.Orders, order)
	}
	for i, s := range doc.Shoppers {
		if strings.TrimSpace(s.ID) == "" {
			return Dataset{}, fmt.Errorf("fixtures: shopper %d: id is required", i)
		}
		out.Shoppers = append(out.Shoppers, domain.Shopper{
			ID:       strings.TrimSpace(s.ID),
			Wishlist: s.Wishlist,
			Cart:     s.Cart,
		})
	}
	return out, nil
}

func validateProduct(p productDocument) error {
	switch {
	case p.Price < 0:
		return errors.New("price must not be negative")
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("rating %v outside [0,5]", p.Rating)
	case p.Sales < 0:
		return errors.New("sales must not be negative")
	case p.Views < 0:
		return errors.New("views must not be negative")
	}
	return nil
}

func idOrNew(id string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return ulid.Make().String()
}

func boolOrTrue(v *bool) bool {
	return v == nil || *v
}

func timeOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}
