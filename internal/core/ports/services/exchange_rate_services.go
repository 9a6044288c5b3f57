package services

import (
	"context"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ExchangeRateReaderSvc defines read operations for exchange rate data.
// A zero date means today in the service's configured time zone.
type ExchangeRateReaderSvc interface {
	// GetRate resolves the rate for one pair and date, cache first.
	GetRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error)

	// GetLatestRates returns the most recent stored rates for base. An empty
	// snapshot is a valid result.
	GetLatestRates(ctx context.Context, base string) (domain.RateSnapshot, error)

	// GetRatesForDate resolves every supported target for base on date.
	GetRatesForDate(ctx context.Context, base string, date time.Time) (domain.RateSnapshot, error)

	// ConvertCurrency converts amount using a direct or reverse rate.
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (*domain.ConversionResult, error)

	// SupportedCurrencies lists the configured currency codes.
	SupportedCurrencies() []string

	// BaseCurrency is the configured default base.
	BaseCurrency() string
}

// ExchangeRateWriterSvc defines write operations for exchange rate data
type ExchangeRateWriterSvc interface {
	// FetchAndStoreDailyRates pulls today's rates for base from the providers
	// and persists every valid one. It reports whether anything was stored.
	FetchAndStoreDailyRates(ctx context.Context, base string) (bool, error)
}

// ExchangeRateSvcFacade combines all exchange rate-related service interfaces
type ExchangeRateSvcFacade interface {
	ExchangeRateReaderSvc
	ExchangeRateWriterSvc
}

// RateCacheSvc is the cache layer. None of its methods fail: an unreachable
// transport reads as absence and writes report false.
type RateCacheSvc interface {
	GetRate(ctx context.Context, base, target string, date time.Time) (decimal.Decimal, bool)
	SetRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal, ttl time.Duration) bool
	DeleteRate(ctx context.Context, base, target string, date time.Time) bool
	GetLatestSnapshot(ctx context.Context, base string) (domain.RateSnapshot, bool)
	SetLatestSnapshot(ctx context.Context, base string, snapshot domain.RateSnapshot, ttl time.Duration) bool
	DeleteLatestSnapshot(ctx context.Context, base string) bool
	InvalidateAll(ctx context.Context) bool
	IsConnected(ctx context.Context) bool
	Stats(ctx context.Context) domain.CacheStats
	Compact(ctx context.Context) bool
}

// AdmissionLimiterSvc admits or rejects requests per client.
type AdmissionLimiterSvc interface {
	Allow(ctx context.Context, clientID string) bool
	Ceiling() int64
}
