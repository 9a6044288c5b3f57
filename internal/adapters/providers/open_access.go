package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/shopspring/decimal"
)

const OpenAccessBaseURL = "https://api.exchangerate-api.com/v4"

type openAccessResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// OpenAccess is the unauthenticated exchangerate-api.com v4 endpoint, the
// last resort in the chain.
type OpenAccess struct {
	baseURL string
	client  *http.Client
}

func NewOpenAccess(client *http.Client) *OpenAccess {
	return NewOpenAccessWithURL(OpenAccessBaseURL, client)
}

func NewOpenAccessWithURL(baseURL string, client *http.Client) *OpenAccess {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &OpenAccess{baseURL: baseURL, client: client}
}

func (p *OpenAccess) Name() string { return "open-exchangerate" }

// Enabled is always true; the endpoint needs no credential.
func (p *OpenAccess) Enabled() bool { return true }

func (p *OpenAccess) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	var body openAccessResponse
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/latest/"+url.PathEscape(base), &body); err != nil {
		return nil, err
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%s: no rates in payload", p.Name())
	}
	return body.Rates, nil
}

var _ ports.RateProvider = (*OpenAccess)(nil)
