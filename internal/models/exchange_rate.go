package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the exchange_rates row.
type ExchangeRate struct {
	ExchangeRateID string          `db:"exchange_rate_id"` // Primary Key (UUID)
	BaseCurrency   string          `db:"base_currency"`
	TargetCurrency string          `db:"target_currency"`
	Rate           decimal.Decimal `db:"rate"` // numeric(20,10)
	RateDate       time.Time       `db:"rate_date"`
	RecordedAt     time.Time       `db:"recorded_at"`
}
