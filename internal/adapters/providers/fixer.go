package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const FixerBaseURL = "http://data.fixer.io/api"

type fixerResponse struct {
	Success bool                       `json:"success"`
	Base    string                     `json:"base"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fixer is the fixer.io provider. It asks only for the supported symbols.
type Fixer struct {
	apiKey  string
	baseURL string
	symbols []string
	client  *http.Client
}

func NewFixer(apiKey string, symbols []string, client *http.Client) *Fixer {
	return NewFixerWithURL(apiKey, FixerBaseURL, symbols, client)
}

func NewFixerWithURL(apiKey, baseURL string, symbols []string, client *http.Client) *Fixer {
	if client == nil {
		client = DefaultHTTPClient
	}
	return &Fixer{apiKey: apiKey, baseURL: baseURL, symbols: symbols, client: client}
}

func (p *Fixer) Name() string  { return "fixer" }
func (p *Fixer) Enabled() bool { return p.apiKey != "" }

func (p *Fixer) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("access_key", p.apiKey)
	q.Set("base", base)
	if symbols := lo.Without(p.symbols, base); len(symbols) > 0 {
		q.Set("symbols", strings.Join(symbols, ","))
	}

	var body fixerResponse
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/latest?"+q.Encode(), &body); err != nil {
		return nil, err
	}
	if !body.Success {
		info := "unknown error"
		if body.Error != nil && body.Error.Info != "" {
			info = body.Error.Info
		}
		return nil, fmt.Errorf("%s: provider error: %s", p.Name(), info)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%s: no rates in payload", p.Name())
	}

	rates := lo.Assign(body.Rates, map[string]decimal.Decimal{base: decimal.NewFromInt(1)})
	return rates, nil
}

var _ ports.RateProvider = (*Fixer)(nil)
