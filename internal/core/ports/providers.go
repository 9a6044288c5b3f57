package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateProvider is one upstream source of exchange rates. Implementations parse
// their own payload shape into a plain code -> rate map at the boundary.
type RateProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Enabled is false when a required credential is missing.
	Enabled() bool
	// FetchRates returns rates from base to every currency the provider knows.
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// RateFetcher resolves a full rate map for base from some upstream.
type RateFetcher interface {
	Fetch(ctx context.Context, base string) (FetchResult, error)
}

// FetchResult is a successful fetch together with the provider that served it.
type FetchResult struct {
	Provider string
	Rates    map[string]decimal.Decimal
}
