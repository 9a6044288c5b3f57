package providers

import (
	"net/http"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
)

// DefaultChain returns the providers in fallback order: the two licensed APIs,
// then the free endpoint. Licensed providers without a key report disabled.
func DefaultChain(exchangeAPIKey, fixerAPIKey string, symbols []string, client *http.Client) []ports.RateProvider {
	return []ports.RateProvider{
		NewExchangeRateAPI(exchangeAPIKey, client),
		NewFixer(fixerAPIKey, symbols, client),
		NewOpenAccess(client),
	}
}
