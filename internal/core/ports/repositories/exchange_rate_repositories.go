package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ExchangeRateReader defines read operations for exchange rate data.
// Absence is reported as apperrors.ErrNotFound; any other error means the
// store itself could not answer.
type ExchangeRateReader interface {
	// FindRate retrieves the rate for the exact (base, target, date) key.
	FindRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error)

	// FindLatestDateWithRates returns the most recent date holding any rate for base.
	FindLatestDateWithRates(ctx context.Context, base string) (time.Time, error)

	// FindRatesForDate returns every rate recorded for base on date.
	FindRatesForDate(ctx context.Context, base string, date time.Time) ([]domain.ExchangeRate, error)
}

// ExchangeRateWriter defines write operations for exchange rate data
type ExchangeRateWriter interface {
	// UpsertRate inserts the rate or overwrites the existing one for the same key.
	UpsertRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error)
}

// ExchangeRateRepositoryFacade combines all exchange rate-related repository interfaces
// This is a facade for clients that need access to all operations
type ExchangeRateRepositoryFacade interface {
	ExchangeRateReader
	ExchangeRateWriter
}

// ExchangeRateRepositoryWithHealth adds connectivity reporting for health checks.
type ExchangeRateRepositoryWithHealth interface {
	ExchangeRateRepositoryFacade
	HealthChecker
}
