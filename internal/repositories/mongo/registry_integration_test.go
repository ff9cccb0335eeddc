//go:build integration

package mongo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/shopfront/api/internal/domain"
	pconfig "github.com/shopfront/api/internal/platform/config"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/repositories"
)

const mongoImage = "mongo:7"

func TestRegistryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	port := freePort(t)
	containerID := startMongo(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	provider, err := pmongo.NewProvider(ctx, pconfig.MongoConfig{
		URI:            fmt.Sprintf("mongodb://127.0.0.1:%d", port),
		Database:       "shopfront_test",
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if err := pmongo.EnsureIndexes(ctx, provider); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	seeder := registry.Seeder()
	if err := seeder.UpsertProducts(ctx, []domain.Product{
		{ID: "p1", Name: "Wireless Headphones", Category: domain.CategoryElectronics, Brand: "Apex", Tags: []string{"audio"}, Active: true, CreatedAt: now},
		{ID: "p2", Name: "Headphone Case", Description: "Protects wireless headphones", Category: domain.CategoryElectronics, Brand: "Shell", Active: true, CreatedAt: now},
		{ID: "p3", Name: "Trail Shoes", Category: domain.CategorySportsOutdoors, Brand: "Stride", Tags: []string{"Outdoor"}, Active: true, CreatedAt: now},
	}); err != nil {
		t.Fatalf("upsert products: %v", err)
	}
	if err := seeder.UpsertOrders(ctx, []domain.Order{
		{ID: "o1", UserID: "u1", Paid: true, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}}},
		{ID: "o2", UserID: "u2", Paid: true, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}, {ProductID: "p2", UnitPrice: 15, Quantity: 2}}},
		{ID: "o3", UserID: "u3", Paid: true, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}, {ProductID: "p2", UnitPrice: 15, Quantity: 1}, {ProductID: "p3", UnitPrice: 60, Quantity: 1}}},
	}); err != nil {
		t.Fatalf("upsert orders: %v", err)
	}

	hits, err := registry.Catalog().Search(ctx, "wireless headphones", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 || hits[0].Product.ID != "p1" {
		t.Fatalf("expected name match first, got %+v", hits)
	}

	found, err := registry.Catalog().FindProducts(ctx, repositories.ProductFilter{Tags: []string{"outdoor"}, ActiveOnly: true})
	if err != nil {
		t.Fatalf("find products: %v", err)
	}
	if len(found) != 1 || found[0].ID != "p3" {
		t.Fatalf("expected p3, got %+v", found)
	}

	neighbors, err := registry.Orders().FindUsersByCommonPurchases(ctx, []string{"p1", "p2"}, "u1", 10)
	if err != nil {
		t.Fatalf("common purchases: %v", err)
	}
	if len(neighbors) != 2 || neighbors[0].UserID != "u2" || neighbors[0].Shared != 2 {
		t.Fatalf("unexpected neighbors %+v", neighbors)
	}

	pairs, err := registry.Orders().FindCoPurchasedProducts(ctx, "p1")
	if err != nil {
		t.Fatalf("co-purchases: %v", err)
	}
	if len(pairs) != 2 || pairs[0].ProductID != "p2" || pairs[0].Frequency != 2 {
		t.Fatalf("unexpected co-purchases %+v", pairs)
	}

	_, err = registry.Shoppers().Get(ctx, "nobody")
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startMongo(t *testing.T, port int) string {
	t.Helper()
	out, err := exec.Command("docker", "run", "-d", "--rm", "-p", fmt.Sprintf("%d:27017", port), mongoImage).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start mongo: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}
