package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/repositories"
)

const catalogCheckName = "catalog"

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service. Catalog is
// optional; when set the report carries a check that the catalog has something to recommend.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Catalog          repositories.CatalogRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	health  repositories.HealthRepository
	catalog repositories.CatalogRepository
	now     func() time.Time
	build   BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the readiness report service.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	svc := &systemService{
		health:  deps.HealthRepository,
		catalog: deps.Catalog,
		now:     func() time.Time { return clock().UTC() },
		build:   deps.Build,
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	return svc, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: context is required")
	}
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, fmt.Errorf("system service: collect health: %w", err)
	}

	now := s.now()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.GeneratedAt = report.GeneratedAt.UTC()
	if report.Version == "" {
		report.Version = s.build.Version
	}
	if report.CommitSHA == "" {
		report.CommitSHA = s.build.CommitSHA
	}
	if report.Environment == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}

	if strings.TrimSpace(report.Status) == "" {
		report.Status = worstStatus(report.Checks)
	}
	if s.catalog != nil && storeHealthy(report.Checks) {
		check := s.checkCatalog(ctx)
		report.Checks[catalogCheckName] = check
		if check.Status != domain.HealthStatusOK && report.Status == domain.HealthStatusOK {
			report.Status = domain.HealthStatusDegraded
		}
	}
	return report, nil
}

// checkCatalog degrades readiness when the store answers but holds no active products, which would
// leave every recommendation endpoint empty.
func (s *systemService) checkCatalog(ctx context.Context) domain.SystemHealthCheck {
	start := s.now()
	products, err := s.catalog.FindProducts(ctx, repositories.ProductFilter{ActiveOnly: true})
	end := s.now()

	check := domain.SystemHealthCheck{Status: domain.HealthStatusOK, Latency: end.Sub(start), CheckedAt: end}
	switch {
	case err != nil:
		check.Status = domain.HealthStatusDegraded
		check.Detail = "catalog query failed"
		check.Error = err.Error()
	case len(products) == 0:
		check.Status = domain.HealthStatusDegraded
		check.Detail = "no active products"
	default:
		check.Detail = strconv.Itoa(len(products)) + " active products"
	}
	return check
}

// storeHealthy skips the catalog query when the store check already failed.
func storeHealthy(checks map[string]domain.SystemHealthCheck) bool {
	store, ok := checks["store"]
	return !ok || store.Status == domain.HealthStatusOK
}

func worstStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusOK, "":
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
