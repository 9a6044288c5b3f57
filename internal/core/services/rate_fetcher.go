package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 30 * time.Second

// ProviderFallbackFetcher tries providers in order and returns the first
// successful result. Results from different providers are never merged.
type ProviderFallbackFetcher struct {
	BaseService
	providers []ports.RateProvider
	supported domain.CurrencySet
	timeout   time.Duration
	metrics   *metrics.RateMetrics
}

// FetcherOption configures a ProviderFallbackFetcher.
type FetcherOption func(*ProviderFallbackFetcher)

// WithProviderTimeout overrides DefaultProviderTimeout.
func WithProviderTimeout(d time.Duration) FetcherOption {
	return func(f *ProviderFallbackFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithFetcherMetrics records provider attempts.
func WithFetcherMetrics(m *metrics.RateMetrics) FetcherOption {
	return func(f *ProviderFallbackFetcher) {
		f.metrics = m
	}
}

// WithFetcherLogger sets the logger used outside request scope.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *ProviderFallbackFetcher) {
		f.Logger = logger
	}
}

// NewProviderFallbackFetcher builds a fetcher over providers in priority order.
func NewProviderFallbackFetcher(supported domain.CurrencySet, providers []ports.RateProvider, opts ...FetcherOption) *ProviderFallbackFetcher {
	f := &ProviderFallbackFetcher{
		providers: providers,
		supported: supported,
		timeout:   DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns rates for base filtered to the supported currencies, or
// apperrors.ErrAllProvidersFailed when no provider produced a usable map.
func (f *ProviderFallbackFetcher) Fetch(ctx context.Context, base string) (ports.FetchResult, error) {
	base = domain.NormalizeCode(base)
	var failures []error

	for _, provider := range f.providers {
		name := provider.Name()
		if !provider.Enabled() {
			f.LogDebug(ctx, "Skipping disabled rate provider", slog.String("provider", name))
			f.metrics.ProviderAttempt(name, "disabled", 0)
			continue
		}
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		start := time.Now()
		rates, err := f.fetchOne(ctx, provider, base)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			f.LogError(ctx, err, "Rate provider failed", slog.String("provider", name), slog.String("base", base))
			f.metrics.ProviderAttempt(name, "failure", elapsed)
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			continue
		}

		filtered := lo.PickBy(rates, func(code string, _ decimal.Decimal) bool {
			return f.supported.Contains(code)
		})
		if len(filtered) == 0 {
			f.LogWarn(ctx, "Rate provider returned no supported currencies", slog.String("provider", name), slog.String("base", base))
			f.metrics.ProviderAttempt(name, "empty", elapsed)
			failures = append(failures, fmt.Errorf("%s: no supported currencies in response", name))
			continue
		}

		f.LogInfo(ctx, "Fetched rates from provider",
			slog.String("provider", name),
			slog.String("base", base),
			slog.Int("count", len(filtered)))
		f.metrics.ProviderAttempt(name, "success", elapsed)
		return ports.FetchResult{Provider: name, Rates: filtered}, nil
	}

	if len(failures) == 0 {
		return ports.FetchResult{}, fmt.Errorf("%w for %s: no enabled providers", apperrors.ErrAllProvidersFailed, base)
	}
	return ports.FetchResult{}, fmt.Errorf("%w for %s: %w", apperrors.ErrAllProvidersFailed, base, errors.Join(failures...))
}

func (f *ProviderFallbackFetcher) fetchOne(ctx context.Context, provider ports.RateProvider, base string) (map[string]decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rates, err := provider.FetchRates(callCtx, base)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, errors.New("empty rate map")
	}
	// keys are normalized here so providers with lower-case payloads still match
	return lo.MapKeys(rates, func(_ decimal.Decimal, code string) string {
		return domain.NormalizeCode(code)
	}), nil
}

var _ ports.RateFetcher = (*ProviderFallbackFetcher)(nil)
