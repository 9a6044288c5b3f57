package dto

import (
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RateDateQuery is the optional ?date= filter of the rate endpoints.
type RateDateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ConvertQuery defines the query parameters of a conversion request.
type ConvertQuery struct {
	Amount       string `form:"amount" binding:"required"`
	FromCurrency string `form:"from_currency" binding:"required,len=3,alpha"`
	ToCurrency   string `form:"to_currency" binding:"required,len=3,alpha"`
	Date         string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// FetchRatesQuery is the optional base override of a manual fetch.
type FetchRatesQuery struct {
	Base string `form:"base" binding:"omitempty,len=3,alpha"`
}

// ExchangeRateResponse defines the structure for API responses containing exchange rate details.
type ExchangeRateResponse struct {
	ExchangeRateID string          `json:"id,omitempty"`
	BaseCurrency   string          `json:"baseCurrency"`
	TargetCurrency string          `json:"targetCurrency"`
	Rate           decimal.Decimal `json:"rate"`
	Date           string          `json:"date"`
	RecordedAt     *time.Time      `json:"recordedAt,omitempty"`
}

// ToExchangeRateResponse converts a domain.ExchangeRate to ExchangeRateResponse DTO
func ToExchangeRateResponse(rate *domain.ExchangeRate) ExchangeRateResponse {
	resp := ExchangeRateResponse{
		ExchangeRateID: rate.ExchangeRateID,
		BaseCurrency:   rate.BaseCurrency,
		TargetCurrency: rate.TargetCurrency,
		Rate:           rate.Rate,
		Date:           domain.FormatDate(rate.Date),
	}
	if !rate.RecordedAt.IsZero() {
		recorded := rate.RecordedAt
		resp.RecordedAt = &recorded
	}
	return resp
}

// ToRatesResponse converts a snapshot to a target-keyed map of responses.
func ToRatesResponse(snapshot domain.RateSnapshot) map[string]ExchangeRateResponse {
	res := make(map[string]ExchangeRateResponse, len(snapshot))
	for target, rate := range snapshot {
		res[target] = ToExchangeRateResponse(&rate)
	}
	return res
}

// ConversionResponse is the result of a conversion.
type ConversionResponse struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	OriginalCurrency string          `json:"originalCurrency"`
	ConvertedAmount  decimal.Decimal `json:"convertedAmount"`
	TargetCurrency   string          `json:"targetCurrency"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`
	RateDate         string          `json:"rateDate"`
	Reversed         bool            `json:"reversed"`
}

// ToConversionResponse converts a domain.ConversionResult. The converted
// amount is rounded to cents for display; the rate is passed through as is.
func ToConversionResponse(result *domain.ConversionResult) ConversionResponse {
	return ConversionResponse{
		OriginalAmount:   result.OriginalAmount,
		OriginalCurrency: result.OriginalCurrency,
		ConvertedAmount:  result.ConvertedAmount.Round(2),
		TargetCurrency:   result.TargetCurrency,
		ExchangeRate:     result.RateUsed,
		RateDate:         domain.FormatDate(result.RateDate),
		Reversed:         result.Reversed,
	}
}
