package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shopfront/api/internal/di"
	"github.com/shopfront/api/internal/handlers"
	"github.com/shopfront/api/internal/platform/auth"
	"github.com/shopfront/api/internal/platform/config"
	"github.com/shopfront/api/internal/platform/observability"
	"github.com/shopfront/api/internal/platform/ratelimit"
	"github.com/shopfront/api/internal/platform/secrets"
	"github.com/shopfront/api/internal/services"
)

const (
	rateLimitWindow    = time.Minute
	rateLimitKeyPrefix = "shopfront:ratelimit"
	shutdownTimeout    = 15 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	recommendationMetrics, err := observability.NewRecommendationMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register recommendation metrics", zap.Error(err))
	}
	rateLimitMetrics, err := observability.NewRateLimitMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register rate limit metrics", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)
	container, err := di.NewContainer(ctx, cfg,
		di.WithLogger(logger.Named("di")),
		di.WithBuildInfo(buildInfo),
		di.WithRecommendationMetrics(recommendationMetrics),
		di.WithSecretFetcher(fetcher),
	)
	if err != nil {
		logger.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	var authenticator *auth.Authenticator
	if strings.TrimSpace(cfg.Firebase.ProjectID) != "" {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authenticator = auth.NewAuthenticator(firebaseVerifier, auth.WithVerificationTimeout(cfg.Firebase.VerifyTimeout))
	} else {
		logger.Warn("firebase project not configured; personalized recommendations will reject every request")
	}

	publicLimiter, shopperLimiter := buildLimiters(logger.Named("ratelimit"), cfg, container)

	recommendationHandlers := handlers.NewRecommendationHandlers(
		handlers.WithRecommendationService(container.Services.Recommendations),
		handlers.WithRecommendationAuthenticator(authenticator),
		handlers.WithRecommendationPublicLimiter(ratelimit.Middleware(publicLimiter, "public",
			ratelimit.WithMetrics(rateLimitMetrics),
		)),
		handlers.WithRecommendationShopperLimiter(ratelimit.Middleware(shopperLimiter, "shopper",
			ratelimit.WithKeyFunc(ratelimit.IdentityOrIP),
			ratelimit.WithMetrics(rateLimitMetrics),
		)),
	)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RequestLoggerMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithRecommendationRoutes(recommendationHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("shopfront api listening",
			zap.String("store_backend", cfg.Store.Backend),
			zap.Bool("redis", container.Redis != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildLimiters prefers the shared redis limiter so every instance counts against the same window.
func buildLimiters(logger *zap.Logger, cfg config.Config, container *di.Container) (ratelimit.Limiter, ratelimit.Limiter) {
	if container.Redis != nil {
		return ratelimit.NewRedisLimiter(container.Redis, cfg.RateLimits.PublicPerMinute, rateLimitWindow,
				ratelimit.WithKeyPrefix(rateLimitKeyPrefix+":public"), ratelimit.WithLogger(logger)),
			ratelimit.NewRedisLimiter(container.Redis, cfg.RateLimits.AuthenticatedPerMinute, rateLimitWindow,
				ratelimit.WithKeyPrefix(rateLimitKeyPrefix+":shopper"), ratelimit.WithLogger(logger))
	}
	logger.Info("redis not configured; using in-process rate limiter")
	return ratelimit.NewMemoryLimiter(cfg.RateLimits.PublicPerMinute, rateLimitWindow, nil),
		ratelimit.NewMemoryLimiter(cfg.RateLimits.AuthenticatedPerMinute, rateLimitWindow, nil)
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	return secrets.NewFetcherFromEnv(ctx, env, secrets.WithLogger(logger.Named("secrets")))
}

// requiredSecretNames lists the secret-backed fields that must resolve for the configured backends.
func requiredSecretNames(env map[string]string) []string {
	var required []string
	if env == nil {
		return required
	}
	if strings.EqualFold(strings.TrimSpace(env["API_STORE_BACKEND"]), config.StoreBackendMongo) {
		required = append(required, "Mongo.URI")
	}
	if strings.TrimSpace(env["API_REDIS_ADDR"]) != "" && strings.TrimSpace(env["API_REDIS_PASSWORD"]) != "" {
		required = append(required, "Redis.Password")
	}
	return uniqueStrings(required)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
