// Command seed loads a YAML catalog fixture into the configured store backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shopfront/api/internal/di"
	"github.com/shopfront/api/internal/fixtures"
	"github.com/shopfront/api/internal/platform/config"
	"github.com/shopfront/api/internal/platform/observability"
	"github.com/shopfront/api/internal/platform/secrets"
	"github.com/shopfront/api/internal/repositories"
)

const defaultFixture = "testdata/catalog.yaml"

func main() {
	fixturePath := flag.String("fixture", "", "path to the YAML fixture (defaults to API_STORE_FIXTURE or "+defaultFixture+")")
	dryRun := flag.Bool("dry-run", false, "parse and validate the fixture without writing")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall seed timeout")
	flag.Parse()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("seed")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger, *fixturePath, *dryRun); err != nil {
		logger.Error("seed failed", zap.Error(err))
		cancel()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, fixturePath string, dryRun bool) error {
	env, err := config.EnvironmentValues()
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	fetcher, err := secrets.NewFetcherFromEnv(ctx, env, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		return fmt.Errorf("init secret fetcher: %w", err)
	}
	defer fetcher.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := resolveFixturePath(fixturePath, cfg.Store.FixtureFile)
	data, err := fixtures.LoadFile(path, time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Info("fixture parsed",
		zap.String("fixture", path),
		zap.Int("products", len(data.Products)),
		zap.Int("orders", len(data.Orders)),
		zap.Int("shoppers", len(data.Shoppers)),
	)
	if dryRun {
		return nil
	}

	if strings.EqualFold(cfg.Store.Backend, config.StoreBackendMemory) {
		return errors.New("memory backend loads API_STORE_FIXTURE at startup; nothing to seed")
	}

	reg, err := di.OpenRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reg.Close(closeCtx); err != nil {
			logger.Warn("registry close error", zap.Error(err))
		}
	}()

	if err := seed(ctx, reg.Seeder(), data); err != nil {
		return err
	}
	logger.Info("seed complete", zap.String("backend", cfg.Store.Backend))
	return nil
}

func seed(ctx context.Context, seeder repositories.Seeder, data fixtures.Dataset) error {
	if seeder == nil {
		return errors.New("store backend does not support seeding")
	}
	if err := seeder.UpsertProducts(ctx, data.Products); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	if err := seeder.UpsertOrders(ctx, data.Orders); err != nil {
		return fmt.Errorf("upsert orders: %w", err)
	}
	if err := seeder.UpsertShoppers(ctx, data.Shoppers); err != nil {
		return fmt.Errorf("upsert shoppers: %w", err)
	}
	return nil
}

func resolveFixturePath(flagValue, configured string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	if path := strings.TrimSpace(configured); path != "" {
		return path
	}
	return defaultFixture
}
