package domain

import "github.com/shopspring/decimal"

// Plausibility band for a single rate. Wide enough for currencies with very
// large nominal units, narrow enough to catch unit or decimal-point errors.
var (
	MinPlausibleRate = decimal.RequireFromString("0.001")
	MaxPlausibleRate = decimal.RequireFromString("10000")
)

// ValidateRate sanity-checks a rate before it is persisted. A rate inside the
// band is not known to be correct, only not absurd.
func ValidateRate(base, target string, rate decimal.Decimal) bool {
	if !rate.IsPositive() {
		return false
	}
	if rate.LessThan(MinPlausibleRate) || rate.GreaterThan(MaxPlausibleRate) {
		return false
	}
	return true
}
