package services

import (
	"context"
	"log/slog"

	portsrepo "github.com/SscSPs/fx_rates_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
)

// HealthService checks the store and the cache.
type HealthService struct {
	BaseService
	db    portsrepo.HealthChecker
	cache portssvc.RateCacheSvc
}

func NewHealthService(db portsrepo.HealthChecker, cache portssvc.RateCacheSvc) *HealthService {
	return &HealthService{db: db, cache: cache}
}

func (h *HealthService) DatabaseHealthy(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	if err := h.db.Ping(ctx); err != nil {
		h.LogWarn(ctx, "Database health check failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (h *HealthService) CacheHealthy(ctx context.Context) bool {
	return h.cache.IsConnected(ctx)
}

var _ portssvc.HealthSvc = (*HealthService)(nil)
