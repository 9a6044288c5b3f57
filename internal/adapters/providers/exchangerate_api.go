package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/shopspring/decimal"
)

const ExchangeRateAPIBaseURL = "https://v6.exchangerate-api.com/v6"

type exchangeRateAPIResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// ExchangeRateAPI is the licensed exchangerate-api.com v6 provider.
type ExchangeRateAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewExchangeRateAPI(apiKey string, client *http.Client) *ExchangeRateAPI {
	return NewExchangeRateAPIWithURL(apiKey, ExchangeRateAPIBaseURL, client)
}

func NewExchangeRateAPIWithURL(apiKey, baseURL string, client *http.Client) *ExchangeRateAPI {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &ExchangeRateAPI{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (p *ExchangeRateAPI) Name() string  { return "exchangerate-api" }
func (p *ExchangeRateAPI) Enabled() bool { return p.apiKey != "" }

func (p *ExchangeRateAPI) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", p.baseURL, url.PathEscape(p.apiKey), url.PathEscape(base))

	var body exchangeRateAPIResponse
	if err := getJSON(ctx, p.client, p.Name(), endpoint, &body); err != nil {
		return nil, err
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("%s: provider error %q", p.Name(), body.ErrorType)
	}
	if len(body.ConversionRates) == 0 {
		return nil, fmt.Errorf("%s: no conversion rates in payload", p.Name())
	}
	return body.ConversionRates, nil
}

var _ ports.RateProvider = (*ExchangeRateAPI)(nil)
