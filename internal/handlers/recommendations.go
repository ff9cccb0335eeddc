package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/platform/auth"
	"github.com/shopfront/api/internal/platform/httpx"
	"github.com/shopfront/api/internal/platform/requestctx"
	"github.com/shopfront/api/internal/repositories"
	"github.com/shopfront/api/internal/services"
)

const (
	publicRecommendationCacheControl  = "public, max-age=300"
	privateRecommendationCacheControl = "private, no-store"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

// RecommendationHandlers exposes the recommendation endpoints.
type RecommendationHandlers struct {
	service        services.RecommendationService
	authn          *auth.Authenticator
	publicLimiter  func(http.Handler) http.Handler
	shopperLimiter func(http.Handler) http.Handler
}

// RecommendationOption customises RecommendationHandlers.
type RecommendationOption func(*RecommendationHandlers)

// WithRecommendationService injects the recommendation service.
func WithRecommendationService(svc services.RecommendationService) RecommendationOption {
	return func(h *RecommendationHandlers) {
		h.service = svc
	}
}

// WithRecommendationAuthenticator sets the authenticator guarding personalized recommendations.
func WithRecommendationAuthenticator(authn *auth.Authenticator) RecommendationOption {
	return func(h *RecommendationHandlers) {
		h.authn = authn
	}
}

// WithRecommendationPublicLimiter sets the rate limiting middleware for anonymous routes.
func WithRecommendationPublicLimiter(mw func(http.Handler) http.Handler) RecommendationOption {
	return func(h *RecommendationHandlers) {
		h.publicLimiter = mw
	}
}

// WithRecommendationShopperLimiter sets the rate limiting middleware for the authenticated route.
func WithRecommendationShopperLimiter(mw func(http.Handler) http.Handler) RecommendationOption {
	return func(h *RecommendationHandlers) {
		h.shopperLimiter = mw
	}
}

// NewRecommendationHandlers constructs the recommendation handlers.
func NewRecommendationHandlers(opts ...RecommendationOption) *RecommendationHandlers {
	h := &RecommendationHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the recommendation endpoints relative to the mount point.
func (h *RecommendationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Group(func(shopper chi.Router) {
		if h.authn != nil {
			shopper.Use(h.authn.RequireFirebaseAuth())
		}
		if h.shopperLimiter != nil {
			shopper.Use(h.shopperLimiter)
		}
		shopper.Get("/personalized", h.personalized)
	})

	r.Group(func(public chi.Router) {
		if h.publicLimiter != nil {
			public.Use(h.publicLimiter)
		}
		public.Get("/product/{productId}", h.forProduct)
		public.Get("/trending", h.trending)
		public.Get("/seasonal", h.seasonal)
		public.Get("/search", h.search)
	})
}

func (h *RecommendationHandlers) personalized(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		writeRecommendationUnavailable(ctx, w)
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.service.Personalized(ctx, identity.UID, limit)
	if err != nil {
		writeRecommendationError(ctx, w, err, "shopper")
		return
	}

	w.Header().Set("Cache-Control", privateRecommendationCacheControl)
	writeJSON(w, http.StatusOK, personalizedResponse{
		Recommendations: buildScoredPayloads(result.Items),
		UserPreferences: buildPreferencesPayload(result.Preferences),
	})
}

func (h *RecommendationHandlers) forProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		writeRecommendationUnavailable(ctx, w)
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product_id", "product id is required", http.StatusBadRequest))
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.service.ForProduct(ctx, productID, limit)
	if err != nil {
		writeRecommendationError(ctx, w, err, "product")
		return
	}

	w.Header().Set("Cache-Control", publicRecommendationCacheControl)
	writeJSON(w, http.StatusOK, productRecommendationsResponse{
		Similar:                  buildTypedPayloads(result.Similar, domain.SourceSimilar),
		FrequentlyBoughtTogether: buildScoredPayloads(result.FrequentlyBoughtTogether),
		TrendingInCategory:       buildTypedPayloads(result.TrendingInCategory, domain.SourceTrendingCategory),
	})
}

func (h *RecommendationHandlers) trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		writeRecommendationUnavailable(ctx, w)
		return
	}

	values := r.URL.Query()
	limit, err := parseLimit(values.Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", err.Error(), http.StatusBadRequest))
		return
	}

	products, err := h.service.Trending(ctx, values.Get("category"), limit)
	if err != nil {
		writeRecommendationError(ctx, w, err, "category")
		return
	}

	w.Header().Set("Cache-Control", publicRecommendationCacheControl)
	writeJSON(w, http.StatusOK, trendingResponse{Products: buildTypedPayloads(products, domain.SourceTrending)})
}

func (h *RecommendationHandlers) seasonal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		writeRecommendationUnavailable(ctx, w)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.service.Seasonal(ctx, limit)
	if err != nil {
		writeRecommendationError(ctx, w, err, "season")
		return
	}

	w.Header().Set("Cache-Control", publicRecommendationCacheControl)
	writeJSON(w, http.StatusOK, seasonalResponse{
		Season:          result.Season,
		Recommendations: buildTypedPayloads(result.Products, domain.SourceSeasonal),
	})
}

func (h *RecommendationHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		writeRecommendationUnavailable(ctx, w)
		return
	}

	values := r.URL.Query()
	limit, err := parseLimit(values.Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_limit", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.service.Search(ctx, values.Get("q"), limit)
	if err != nil {
		writeRecommendationError(ctx, w, err, "query")
		return
	}

	payload := searchResponse{Query: result.Query, Products: make([]searchHitPayload, 0, len(result.Hits))}
	for _, hit := range result.Hits {
		payload.Products = append(payload.Products, searchHitPayload{
			typedProductPayload: typedProductPayload{
				productPayload:     buildProductPayload(hit.Product),
				RecommendationType: string(domain.SourceSearch),
			},
			Relevance: hit.Relevance,
		})
	}
	w.Header().Set("Cache-Control", publicRecommendationCacheControl)
	writeJSON(w, http.StatusOK, payload)
}

// parseLimit returns zero when the parameter is absent so the service default applies.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, errInvalidLimit
	}
	return value, nil
}

func writeRecommendationUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("recommendations_unavailable", "recommendation service is unavailable", http.StatusServiceUnavailable))
}

func writeRecommendationError(ctx context.Context, w http.ResponseWriter, err error, resource string) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, services.ErrRecommendationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", strings.TrimPrefix(err.Error(), services.ErrRecommendationInvalidInput.Error()+": "), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrRecommendationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(fmt.Sprintf("%s_not_found", resource), fmt.Sprintf("%s not found", resource), http.StatusNotFound))
		return
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("deadline_exceeded", "recommendation request timed out", http.StatusGatewayTimeout))
		return
	}

	logger := requestctx.Logger(ctx)
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			httpx.WriteError(ctx, w, httpx.NewError(fmt.Sprintf("%s_not_found", resource), fmt.Sprintf("%s not found", resource), http.StatusNotFound))
			return
		case repoErr.IsUnavailable():
			logger.Warn("recommendation store unavailable", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "recommendation store unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	logger.Error("recommendation request failed", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to compute recommendations", http.StatusInternalServerError))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type productPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags,omitempty"`
	Rating      float64  `json:"rating"`
	Sales       int64    `json:"sales"`
	Views       int64    `json:"views"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

type scoredProductPayload struct {
	productPayload
	RecommendationScore float64 `json:"recommendationScore"`
	RecommendationType  string  `json:"recommendationType"`
	AvgPaidPrice        float64 `json:"avgPaidPrice,omitempty"`
}

// typedProductPayload tags an unscored list entry with the list that produced it.
type typedProductPayload struct {
	productPayload
	RecommendationType string `json:"recommendationType"`
}

type searchHitPayload struct {
	typedProductPayload
	Relevance float64 `json:"relevance"`
}

type priceRangePayload struct {
	Avg float64  `json:"avg"`
	Max *float64 `json:"max,omitempty"`
}

type preferencesPayload struct {
	Categories []string          `json:"categories"`
	Brands     []string          `json:"brands"`
	PriceRange priceRangePayload `json:"priceRange"`
}

type personalizedResponse struct {
	Recommendations []scoredProductPayload `json:"recommendations"`
	UserPreferences preferencesPayload     `json:"userPreferences"`
}

type productRecommendationsResponse struct {
	Similar                  []typedProductPayload  `json:"similar"`
	FrequentlyBoughtTogether []scoredProductPayload `json:"frequentlyBoughtTogether"`
	TrendingInCategory       []typedProductPayload  `json:"trendingInCategory"`
}

type trendingResponse struct {
	Products []typedProductPayload `json:"products"`
}

type seasonalResponse struct {
	Season          string                `json:"season"`
	Recommendations []typedProductPayload `json:"recommendations"`
}

type searchResponse struct {
	Query    string             `json:"query"`
	Products []searchHitPayload `json:"products"`
}

func buildProductPayload(p domain.Product) productPayload {
	payload := productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Brand:       p.Brand,
		Price:       p.Price,
		Tags:        p.Tags,
		Rating:      p.Rating,
		Sales:       p.Sales,
		Views:       p.Views,
	}
	if !p.CreatedAt.IsZero() {
		payload.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func buildTypedPayloads(products []domain.Product, source domain.RecommendationSource) []typedProductPayload {
	out := make([]typedProductPayload, 0, len(products))
	for _, p := range products {
		out = append(out, typedProductPayload{productPayload: buildProductPayload(p), RecommendationType: string(source)})
	}
	return out
}

func buildScoredPayloads(items []domain.ScoredProduct) []scoredProductPayload {
	out := make([]scoredProductPayload, 0, len(items))
	for _, item := range items {
		out = append(out, scoredProductPayload{
			productPayload:      buildProductPayload(item.Product),
			RecommendationScore: item.Score,
			RecommendationType:  string(item.Source),
			AvgPaidPrice:        item.AvgPaidPrice,
		})
	}
	return out
}

func buildPreferencesPayload(prefs domain.PreferenceSnapshot) preferencesPayload {
	categories := make([]string, 0, len(prefs.Categories))
	for _, c := range prefs.Categories {
		categories = append(categories, string(c))
	}
	brands := make([]string, 0, len(prefs.Brands))
	brands = append(brands, prefs.Brands...)
	return preferencesPayload{
		Categories: categories,
		Brands:     brands,
		PriceRange: priceRangePayload{
			Avg: prefs.PriceRange.Avg,
			Max: prefs.PriceRange.Max,
		},
	}
}
