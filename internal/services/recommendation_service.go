package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/platform/observability"
	"github.com/shopfront/api/internal/platform/requestctx"
	"github.com/shopfront/api/internal/platform/textutil"
	"github.com/shopfront/api/internal/recommend"
	"github.com/shopfront/api/internal/repositories"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 50
)

const (
	kindPersonalized = "personalized"
	kindProduct      = "product"
	kindTrending     = "trending"
	kindSeasonal     = "seasonal"
	kindSearch       = "search"
)

var (
	// ErrRecommendationInvalidInput indicates a malformed identifier, category, or query.
	ErrRecommendationInvalidInput = errors.New("recommendation service: invalid input")
	// ErrRecommendationNotFound indicates the shopper or product does not exist.
	ErrRecommendationNotFound = errors.New("recommendation service: not found")
)

var tracer = otel.Tracer("github.com/shopfront/api/internal/services")

// RecommendationLimits bounds result sizes. Zero values fall back to the package defaults.
type RecommendationLimits struct {
	Default   int
	Max       int
	Neighbors int
}

// RecommendationServiceDeps bundles constructor inputs for the recommendation service.
type RecommendationServiceDeps struct {
	Catalog  repositories.CatalogRepository
	Orders   repositories.OrderRepository
	Shoppers repositories.ShopperRepository
	Limits   RecommendationLimits
	Metrics  *observability.RecommendationMetrics
	Clock    func() time.Time
}

type recommendationService struct {
	catalog  repositories.CatalogRepository
	orders   repositories.OrderRepository
	shoppers repositories.ShopperRepository
	limits   RecommendationLimits
	metrics  *observability.RecommendationMetrics
	clock    func() time.Time
}

var _ RecommendationService = (*recommendationService)(nil)

// NewRecommendationService constructs the recommendation service with the supplied dependencies.
func NewRecommendationService(deps RecommendationServiceDeps) (RecommendationService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("recommendation service: catalog repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("recommendation service: order repository is required")
	}
	if deps.Shoppers == nil {
		return nil, errors.New("recommendation service: shopper repository is required")
	}

	limits := deps.Limits
	if limits.Max <= 0 {
		limits.Max = maxRecommendationLimit
	}
	if limits.Default <= 0 {
		limits.Default = defaultRecommendationLimit
	}
	if limits.Default > limits.Max {
		limits.Default = limits.Max
	}
	if limits.Neighbors <= 0 {
		limits.Neighbors = recommend.DefaultNeighborLimit
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &recommendationService{
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		shoppers: deps.Shoppers,
		limits:   limits,
		metrics:  deps.Metrics,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

func (s *recommendationService) Personalized(ctx context.Context, userID string, limit int) (result PersonalizedRecommendations, err error) {
	ctx, finish := s.begin(ctx, kindPersonalized)
	defer func() { finish(len(result.Items), err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return PersonalizedRecommendations{}, fmt.Errorf("%w: user id is required", ErrRecommendationInvalidInput)
	}
	limit = s.resolveLimit(limit)
	logger := requestctx.Logger(ctx)

	shopper, err := s.shoppers.Get(ctx, userID)
	if err != nil {
		return PersonalizedRecommendations{}, s.translate(err, "load shopper")
	}
	orders, err := s.orders.ListPaidByUser(ctx, userID)
	if err != nil {
		return PersonalizedRecommendations{}, s.translate(err, "list paid orders")
	}

	referenced := make([]string, 0, len(shopper.Wishlist)+len(shopper.Cart))
	for _, order := range orders {
		referenced = append(referenced, order.ProductIDs()...)
	}
	referenced = append(referenced, shopper.Wishlist...)
	referenced = append(referenced, shopper.Cart...)
	products, err := s.productIndex(ctx, referenced)
	if err != nil {
		return PersonalizedRecommendations{}, s.translate(err, "resolve history products")
	}

	var purchases []recommend.PurchaseLine
	for _, order := range orders {
		for _, item := range order.Items {
			product, ok := products[item.ProductID]
			if !ok {
				logger.Debug("skipping unresolved order line",
					zap.String("order_id", order.ID),
					zap.String("product_id", item.ProductID),
				)
				continue
			}
			purchases = append(purchases, recommend.PurchaseLine{
				Product:   product,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			})
		}
	}
	prefs := recommend.ExtractPreferences(purchases, lookupProducts(products, shopper.Wishlist), lookupProducts(products, shopper.Cart))

	var collaborative, content []domain.ScoredProduct
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		collaborative, err = s.collaborative(gctx, userID, orders, limit)
		return err
	})
	g.Go(func() error {
		var err error
		content, err = s.content(gctx, prefs, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return PersonalizedRecommendations{}, s.translate(err, "score candidates")
	}

	fused := recommend.Fuse(collaborative, content, limit)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("recommendation.collaborative", len(collaborative)),
		attribute.Int("recommendation.content", len(content)),
		attribute.Int("recommendation.purchase_lines", len(purchases)),
	)
	logger.Debug("personalized recommendations scored",
		zap.Int("collaborative", len(collaborative)),
		zap.Int("content", len(content)),
		zap.Int("fused", len(fused)),
		zap.Bool("cold_start", !prefs.HasCategorySignal()),
	)

	return PersonalizedRecommendations{Items: fused, Preferences: prefs}, nil
}

func (s *recommendationService) collaborative(ctx context.Context, userID string, orders []domain.Order, limit int) ([]domain.ScoredProduct, error) {
	purchased := recommend.PurchasedProducts(orders)
	if len(purchased) == 0 {
		return nil, nil
	}

	neighbors, err := s.orders.FindUsersByCommonPurchases(ctx, purchased, userID, s.limits.Neighbors)
	if err != nil {
		return nil, err
	}
	neighbors = recommend.TopNeighbors(neighbors, userID, s.limits.Neighbors)
	if len(neighbors) == 0 {
		return nil, nil
	}

	neighborIDs := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		neighborIDs = append(neighborIDs, n.UserID)
	}
	neighborOrders, err := s.orders.ListPaidByUsers(ctx, neighborIDs)
	if err != nil {
		return nil, err
	}

	scores := recommend.ScoreNeighborPurchases(purchased, neighbors, neighborOrders, limit)
	if len(scores) == 0 {
		return nil, nil
	}
	candidateIDs := make([]string, 0, len(scores))
	for _, score := range scores {
		candidateIDs = append(candidateIDs, score.ProductID)
	}
	catalog, err := s.productIndex(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	return recommend.ResolveCollaborative(scores, catalog), nil
}

func (s *recommendationService) content(ctx context.Context, prefs domain.PreferenceSnapshot, limit int) ([]domain.ScoredProduct, error) {
	filter := repositories.ProductFilter{ActiveOnly: true}
	if prefs.HasCategorySignal() {
		filter.Categories, filter.Brands = recommend.ContentTargets(prefs)
	}
	candidates, err := s.catalog.FindProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return recommend.ContentBased(prefs, candidates, limit), nil
}

func (s *recommendationService) ForProduct(ctx context.Context, productID string, limit int) (result ProductRecommendations, err error) {
	ctx, finish := s.begin(ctx, kindProduct)
	defer func() {
		finish(len(result.Similar)+len(result.FrequentlyBoughtTogether)+len(result.TrendingInCategory), err)
	}()

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductRecommendations{}, fmt.Errorf("%w: product id is required", ErrRecommendationInvalidInput)
	}
	limit = s.resolveLimit(limit)

	target, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return ProductRecommendations{}, s.translate(err, "load product")
	}
	if !target.Active {
		return ProductRecommendations{}, fmt.Errorf("%w: product %s is not active", ErrRecommendationNotFound, productID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		filter := repositories.ProductFilter{
			Categories: []domain.Category{target.Category},
			Tags:       target.Tags,
			ActiveOnly: true,
		}
		if target.Brand != "" {
			filter.Brands = []string{target.Brand}
		}
		candidates, err := s.catalog.FindProducts(gctx, filter)
		if err != nil {
			return err
		}
		result.Similar = recommend.Similar(target, candidates, limit)
		return nil
	})
	g.Go(func() error {
		coPurchases, err := s.orders.FindCoPurchasedProducts(gctx, target.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(coPurchases))
		for _, cp := range coPurchases {
			ids = append(ids, cp.ProductID)
		}
		catalog, err := s.productIndex(gctx, ids)
		if err != nil {
			return err
		}
		result.FrequentlyBoughtTogether = recommend.FrequentlyBoughtTogether(target.ID, coPurchases, catalog, limit)
		return nil
	})
	g.Go(func() error {
		candidates, err := s.catalog.FindProducts(gctx, repositories.ProductFilter{
			Categories: []domain.Category{target.Category},
			ActiveOnly: true,
		})
		if err != nil {
			return err
		}
		result.TrendingInCategory = recommend.TrendingInCategory(target, candidates, limit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ProductRecommendations{}, s.translate(err, "score product recommendations")
	}
	return result, nil
}

func (s *recommendationService) Trending(ctx context.Context, category string, limit int) (products []Product, err error) {
	ctx, finish := s.begin(ctx, kindTrending)
	defer func() { finish(len(products), err) }()

	filter := repositories.ProductFilter{ActiveOnly: true}
	var selected *domain.Category
	if raw := strings.TrimSpace(category); raw != "" {
		parsed, ok := domain.ParseCategory(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q (expected one of %s)", ErrRecommendationInvalidInput, raw, knownCategories())
		}
		selected = &parsed
		filter.Categories = []domain.Category{parsed}
	}

	catalog, err := s.catalog.FindProducts(ctx, filter)
	if err != nil {
		return nil, s.translate(err, "list products")
	}
	return recommend.Trending(catalog, selected, s.resolveLimit(limit)), nil
}

func (s *recommendationService) Seasonal(ctx context.Context, limit int) (result SeasonalRecommendations, err error) {
	ctx, finish := s.begin(ctx, kindSeasonal)
	defer func() { finish(len(result.Products), err) }()

	season := recommend.SeasonFor(s.clock().Month())
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("recommendation.season", season.Name))

	catalog, err := s.catalog.FindProducts(ctx, repositories.ProductFilter{
		Categories: season.Categories,
		Tags:       season.Tags,
		ActiveOnly: true,
	})
	if err != nil {
		return SeasonalRecommendations{}, s.translate(err, "list seasonal products")
	}
	return SeasonalRecommendations{
		Season:   season.Name,
		Products: recommend.Seasonal(season, catalog, s.resolveLimit(limit)),
	}, nil
}

func (s *recommendationService) Search(ctx context.Context, query string, limit int) (result SearchResults, err error) {
	ctx, finish := s.begin(ctx, kindSearch)
	defer func() { finish(len(result.Hits), err) }()

	normalized, ok := textutil.NormalizeQuery(query)
	if !ok {
		return SearchResults{}, fmt.Errorf("%w: search query is required", ErrRecommendationInvalidInput)
	}
	limit = s.resolveLimit(limit)

	hits, err := s.catalog.Search(ctx, normalized, limit)
	if err != nil {
		return SearchResults{}, s.translate(err, "search catalog")
	}
	return SearchResults{Query: normalized, Hits: recommend.RankSearchResults(hits, limit)}, nil
}

// begin opens the operation span; the returned func records metrics and closes it.
func (s *recommendationService) begin(ctx context.Context, kind string) (context.Context, func(count int, err error)) {
	started := time.Now()
	requestctx.SetRecommendationKind(ctx, kind)
	ctx, span := tracer.Start(ctx, "recommendation."+kind)
	return ctx, func(count int, err error) {
		span.SetAttributes(attribute.Int("recommendation.count", count))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.Record(ctx, kind, started, count, err)
	}
}

func knownCategories() string {
	all := domain.Categories()
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func (s *recommendationService) resolveLimit(limit int) int {
	if limit <= 0 {
		return s.limits.Default
	}
	if limit > s.limits.Max {
		return s.limits.Max
	}
	return limit
}

// productIndex resolves IDs to products keyed by ID. Unknown IDs are absent from the map.
func (s *recommendationService) productIndex(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index, nil
}

func (s *recommendationService) translate(err error, op string) error {
	if isRecommendationRepositoryNotFound(err) {
		return fmt.Errorf("%w: %s: %v", ErrRecommendationNotFound, op, err)
	}
	return fmt.Errorf("recommendation service: %s: %w", op, err)
}

func isRecommendationRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func lookupProducts(index map[string]domain.Product, ids []string) []domain.Product {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := index[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
