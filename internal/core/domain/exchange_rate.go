package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the recorded rate from BaseCurrency to TargetCurrency on Date.
// (BaseCurrency, TargetCurrency, Date) is the natural key.
type ExchangeRate struct {
	ExchangeRateID string          `json:"exchangeRateID,omitempty"`
	BaseCurrency   string          `json:"baseCurrency"`
	TargetCurrency string          `json:"targetCurrency"`
	Rate           decimal.Decimal `json:"rate"`
	Date           time.Time       `json:"date"`
	RecordedAt     time.Time       `json:"recordedAt"`
}

// RateSnapshot maps target currency to the latest recorded rate for one base.
type RateSnapshot map[string]ExchangeRate

// ConversionResult is computed per request and never persisted.
type ConversionResult struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	OriginalCurrency string          `json:"originalCurrency"`
	ConvertedAmount  decimal.Decimal `json:"convertedAmount"`
	TargetCurrency   string          `json:"targetCurrency"`
	RateUsed         decimal.Decimal `json:"rateUsed"`
	// RateDate is the date of the record actually used, which for a reverse
	// lookup may differ from the requested date.
	RateDate time.Time `json:"rateDate"`
	Reversed bool      `json:"reversed"`
}

// RatesRefreshedEvent is emitted after a daily fetch stores at least one rate.
type RatesRefreshedEvent struct {
	BaseCurrency string    `json:"baseCurrency"`
	Date         string    `json:"date"`
	Stored       int       `json:"stored"`
	Rejected     int       `json:"rejected"`
	Provider     string    `json:"provider,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}
