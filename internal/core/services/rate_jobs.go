package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
)

// Scheduled job identifiers.
const (
	DailyRateFetchJobID   = "daily_rate_fetch"
	CacheMaintenanceJobID = "cache_maintenance"
)

// RateJobs holds the bodies of the scheduled jobs.
type RateJobs struct {
	BaseService
	rates portssvc.ExchangeRateSvcFacade
	cache portssvc.RateCacheSvc
	base  string
}

// NewRateJobs wires the jobs to the engine and cache. base is the currency the
// daily fetch refreshes.
func NewRateJobs(rates portssvc.ExchangeRateSvcFacade, cache portssvc.RateCacheSvc, base string, logger *slog.Logger) *RateJobs {
	return &RateJobs{
		BaseService: BaseService{Logger: logger},
		rates:       rates,
		cache:       cache,
		base:        domain.NormalizeCode(base),
	}
}

// DailyRateFetch stores today's rates and, on success, warms the latest
// snapshot so the next read is a cache hit. Failures are not retried here;
// the next trigger is the retry.
func (j *RateJobs) DailyRateFetch(ctx context.Context) error {
	j.LogInfo(ctx, "Starting daily rate fetch", slog.String("base", j.base))

	ok, err := j.rates.FetchAndStoreDailyRates(ctx, j.base)
	if err != nil {
		return fmt.Errorf("daily fetch for %s: %w", j.base, err)
	}
	if !ok {
		return errors.New("daily fetch for " + j.base + " stored no rates")
	}

	snapshot, err := j.rates.GetLatestRates(ctx, j.base)
	if err != nil {
		// fetch succeeded; the snapshot is rebuilt on the next read
		j.LogError(ctx, err, "Cache warm after daily fetch failed", slog.String("base", j.base))
		return nil
	}
	j.LogInfo(ctx, "Cache warmed", slog.String("base", j.base), slog.Int("rates", len(snapshot)))
	return nil
}

// CacheMaintenance compacts the cache transport and logs stats around it.
// TTL expiry is the transport's job; this is housekeeping only.
func (j *RateJobs) CacheMaintenance(ctx context.Context) error {
	before := j.cache.Stats(ctx)
	if before.Status != domain.CacheStatusConnected {
		j.LogWarn(ctx, "Cache not connected, skipping maintenance", slog.String("status", before.Status))
		return nil
	}

	if !j.cache.Compact(ctx) {
		return errors.New("cache compaction failed")
	}

	after := j.cache.Stats(ctx)
	j.LogInfo(ctx, "Cache maintenance finished",
		slog.String("backend", after.Backend),
		slog.Int64("keys_before", before.TotalKeys),
		slog.Int64("keys_after", after.TotalKeys),
		slog.String("memory_before", before.MemoryUsage),
		slog.String("memory_after", after.MemoryUsage))
	return nil
}
