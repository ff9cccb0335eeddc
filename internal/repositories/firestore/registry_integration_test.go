//go:build integration

package firestore

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
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	"github.com/shopfront/api/internal/repositories"
)

func TestRegistryIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "shopfront-test",
		EmulatorHost: endpoint,
	})
	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "p1", Name: "Wireless Headphones", Category: domain.CategoryElectronics, Brand: "Apex", Tags: []string{"Audio"}, Rating: 4.5, Active: true, CreatedAt: now},
		{ID: "p2", Name: "Garden Hose", Category: domain.CategoryHomeGarden, Brand: "Leafy", Tags: []string{"outdoor"}, Active: true, CreatedAt: now},
		{ID: "p3", Name: "Trail Shoes", Category: domain.CategorySportsOutdoors, Brand: "Stride", Tags: []string{"outdoor"}, Active: false, CreatedAt: now},
	}
	orders := []domain.Order{
		{ID: "o1", UserID: "u1", Paid: true, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}}},
		{ID: "o2", UserID: "u2", Paid: true, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}, {ProductID: "p2", UnitPrice: 20, Quantity: 1}}},
		{ID: "o3", UserID: "u3", Paid: false, CreatedAt: now, Items: []domain.OrderItem{{ProductID: "p1", UnitPrice: 99, Quantity: 1}, {ProductID: "p2", UnitPrice: 20, Quantity: 1}}},
	}
	seeder := registry.Seeder()
	if err := seeder.UpsertProducts(ctx, products); err != nil {
		t.Fatalf("upsert products: %v", err)
	}
	if err := seeder.UpsertOrders(ctx, orders); err != nil {
		t.Fatalf("upsert orders: %v", err)
	}
	if err := seeder.UpsertShoppers(ctx, []domain.Shopper{{ID: "u1", Cart: []string{"p2"}}}); err != nil {
		t.Fatalf("upsert shoppers: %v", err)
	}

	if err := registry.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	found, err := registry.Catalog().FindProducts(ctx, repositories.ProductFilter{
		Brands:     []string{"Apex"},
		Tags:       []string{"OUTDOOR"},
		ActiveOnly: true,
	})
	if err != nil {
		t.Fatalf("find products: %v", err)
	}
	if len(found) != 2 || found[0].ID != "p1" || found[1].ID != "p2" {
		t.Fatalf("expected [p1 p2], got %+v", found)
	}

	hits, err := registry.Catalog().Search(ctx, "headphones", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Product.ID != "p1" {
		t.Fatalf("expected p1 hit, got %+v", hits)
	}

	neighbors, err := registry.Orders().FindUsersByCommonPurchases(ctx, []string{"p1"}, "u1", 10)
	if err != nil {
		t.Fatalf("find neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].UserID != "u2" {
		t.Fatalf("expected u2 neighbor, got %+v", neighbors)
	}

	pairs, err := registry.Orders().FindCoPurchasedProducts(ctx, "p1")
	if err != nil {
		t.Fatalf("co-purchases: %v", err)
	}
	if len(pairs) != 1 || pairs[0].ProductID != "p2" || pairs[0].Frequency != 1 {
		t.Fatalf("expected p2 once, got %+v", pairs)
	}

	shopper, err := registry.Shoppers().Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get shopper: %v", err)
	}
	if len(shopper.Cart) != 1 {
		t.Fatalf("expected cart item, got %+v", shopper)
	}

	_, err = registry.Shoppers().Get(ctx, "missing")
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

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
