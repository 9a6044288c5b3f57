package services

import (
	"fmt"
	"log/slog"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	portsrepo "github.com/SscSPs/fx_rates_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
	"github.com/SscSPs/fx_rates_service/internal/platform/config"
)

// Dependencies are the adapters the services are built on.
type Dependencies struct {
	Repos          portsrepo.RepositoryProvider
	CacheTransport ports.CacheTransport
	WindowStore    ports.WindowStore
	Providers      []ports.RateProvider
	Publisher      ports.RateEventPublisher
	Metrics        *metrics.RateMetrics
	Logger         *slog.Logger
}

// NewServiceContainer creates a new service container with properly initialized dependencies.
// The returned RateJobs still need to be registered with a scheduler, which
// then becomes the container's Jobs controller.
func NewServiceContainer(cfg *config.Config, deps Dependencies) (*portssvc.ServiceContainer, *RateJobs, error) {
	supported, err := domain.NewCurrencySet(cfg.SupportedCurrencies...)
	if err != nil {
		return nil, nil, fmt.Errorf("supported currencies: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := NewRateCacheService(deps.CacheTransport,
		WithDefaultTTL(cfg.CacheTTL),
		WithCacheMetrics(deps.Metrics),
		WithCacheLogger(logger),
	)

	fetcher := NewProviderFallbackFetcher(supported, deps.Providers,
		WithProviderTimeout(cfg.ProviderTimeout),
		WithFetcherMetrics(deps.Metrics),
		WithFetcherLogger(logger),
	)

	exchangeRate := NewExchangeRateService(deps.Repos.ExchangeRateRepo, cache, fetcher, supported, cfg.BaseCurrency,
		WithLocation(cfg.Location),
		WithRateCacheTTL(cfg.CacheTTL),
		WithEventPublisher(deps.Publisher),
		WithRateMetrics(deps.Metrics),
		WithRateLogger(logger),
	)

	limiter := NewFixedWindowLimiter(deps.WindowStore, cfg.RateLimitPerHour,
		WithLimiterMetrics(deps.Metrics),
	)
	limiter.Logger = logger

	health := NewHealthService(deps.Repos.ExchangeRateRepo, cache)
	health.Logger = logger

	container := &portssvc.ServiceContainer{
		ExchangeRate: exchangeRate,
		Cache:        cache,
		Limiter:      limiter,
		Health:       health,
	}

	jobs := NewRateJobs(exchangeRate, cache, cfg.BaseCurrency, logger)
	return container, jobs, nil
}
