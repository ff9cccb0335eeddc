package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shopfront/api/internal/fixtures"
	"github.com/shopfront/api/internal/platform/config"
	pfirestore "github.com/shopfront/api/internal/platform/firestore"
	pmongo "github.com/shopfront/api/internal/platform/mongo"
	"github.com/shopfront/api/internal/platform/observability"
	"github.com/shopfront/api/internal/platform/secrets"
	"github.com/shopfront/api/internal/repositories"
	firestoreRepo "github.com/shopfront/api/internal/repositories/firestore"
	"github.com/shopfront/api/internal/repositories/memory"
	mongoRepo "github.com/shopfront/api/internal/repositories/mongo"
	"github.com/shopfront/api/internal/services"
)

const (
	storeCheckTimeout  = 1500 * time.Millisecond
	redisCheckTimeout  = 500 * time.Millisecond
	secretCheckTimeout = time.Second

	secretHealthReference = "secret://shopfront-healthz"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Recommendations services.RecommendationService
	System          services.SystemService
}

// Container wires repositories, services, and optional infrastructure clients for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Redis        *redis.Client
	Services     Services
}

type containerOptions struct {
	registry repositories.Registry
	logger   *zap.Logger
	build    services.BuildInfo
	metrics  *observability.RecommendationMetrics
	fetcher  *secrets.Fetcher
	clock    func() time.Time
}

// Option customises container construction.
type Option func(*containerOptions)

// WithRegistry supplies a pre-built registry instead of opening the configured backend.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *containerOptions) {
		o.registry = reg
	}
}

// WithLogger sets the logger used while wiring dependencies.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuildInfo sets the build metadata surfaced by the system service.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = info
	}
}

// WithRecommendationMetrics attaches metric instruments to the recommendation service.
func WithRecommendationMetrics(metrics *observability.RecommendationMetrics) Option {
	return func(o *containerOptions) {
		o.metrics = metrics
	}
}

// WithSecretFetcher adds an optional Secret Manager readiness check.
func WithSecretFetcher(fetcher *secrets.Fetcher) Option {
	return func(o *containerOptions) {
		o.fetcher = fetcher
	}
}

// WithClock overrides the clock passed to services.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. Tests can supply an in-memory registry via
// WithRegistry; otherwise the backend named by cfg.Store.Backend is opened.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := containerOptions{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	reg := o.registry
	if reg == nil {
		opened, err := OpenRegistry(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		reg = opened
	}

	c := &Container{Config: cfg, Repositories: reg}
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	svc, err := buildServices(c, o)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// OpenRegistry opens the repository registry for the configured store backend.
func OpenRegistry(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	switch backend {
	case config.StoreBackendFirestore, "":
		var providerOpts []pfirestore.ProviderOption
		if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
			providerOpts = append(providerOpts, pfirestore.WithClientOptions(option.WithCredentialsFile(file)))
		}
		provider := pfirestore.NewProvider(cfg.Firestore, providerOpts...)
		if _, err := provider.Client(ctx); err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		reg, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close(context.Background())
			return nil, fmt.Errorf("build firestore registry: %w", err)
		}
		logger.Info("store backend ready", zap.String("backend", config.StoreBackendFirestore), zap.String("project_id", cfg.Firestore.ProjectID))
		return reg, nil

	case config.StoreBackendMongo:
		provider, err := pmongo.NewProvider(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		if err := pmongo.EnsureIndexes(ctx, provider); err != nil {
			_ = provider.Close(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		reg, err := mongoRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close(context.Background())
			return nil, fmt.Errorf("build mongo registry: %w", err)
		}
		logger.Info("store backend ready", zap.String("backend", config.StoreBackendMongo), zap.String("database", cfg.Mongo.Database))
		return reg, nil

	case config.StoreBackendMemory:
		path := strings.TrimSpace(cfg.Store.FixtureFile)
		if path == "" {
			logger.Info("store backend ready", zap.String("backend", config.StoreBackendMemory), zap.Bool("empty", true))
			return memory.NewStore(), nil
		}
		data, err := fixtures.LoadFile(path, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("load memory fixture: %w", err)
		}
		logger.Info("store backend ready",
			zap.String("backend", config.StoreBackendMemory),
			zap.String("fixture", path),
			zap.Int("products", len(data.Products)),
			zap.Int("orders", len(data.Orders)),
		)
		return memory.NewStoreFromDataset(data), nil

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

// Close releases the redis client and repository connections.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildServices(c *Container, o containerOptions) (Services, error) {
	var svc Services
	reg := c.Repositories

	recommendationSvc, err := services.NewRecommendationService(services.RecommendationServiceDeps{
		Catalog:  reg.Catalog(),
		Orders:   reg.Orders(),
		Shoppers: reg.Shoppers(),
		Limits: services.RecommendationLimits{
			Default:   c.Config.Recommendations.DefaultLimit,
			Max:       c.Config.Recommendations.MaxLimit,
			Neighbors: c.Config.Recommendations.NeighborLimit,
		},
		Metrics: o.metrics,
		Clock:   o.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build recommendation service: %w", err)
	}
	svc.Recommendations = recommendationSvc

	healthRepo, err := repositories.NewDependencyHealthRepository(dependencyChecks(c, o.fetcher), repositories.WithDependencyClock(o.clock))
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	build := o.build
	if build.Environment == "" {
		build.Environment = c.Config.Security.Environment
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Catalog:          reg.Catalog(),
		Clock:            o.clock,
		Build:            build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

func dependencyChecks(c *Container, fetcher *secrets.Fetcher) []repositories.DependencyCheck {
	reg := c.Repositories
	checks := []repositories.DependencyCheck{{
		Name:    "store",
		Timeout: storeCheckTimeout,
		Check:   reg.Ping,
	}}
	if client := c.Redis; client != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "redis",
			Timeout:  redisCheckTimeout,
			Optional: true,
			Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		})
	}
	if fetcher != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "secretManager",
			Timeout:  secretCheckTimeout,
			Optional: true,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	return checks
}
