package mapping

import (
	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/models"
	"github.com/samber/lo"
)

// ToModelExchangeRate converts a domain ExchangeRate to a model ExchangeRate
func ToModelExchangeRate(d domain.ExchangeRate) models.ExchangeRate {
	return models.ExchangeRate{
		ExchangeRateID: d.ExchangeRateID,
		BaseCurrency:   d.BaseCurrency,
		TargetCurrency: d.TargetCurrency,
		Rate:           d.Rate,
		RateDate:       domain.CalendarDate(d.Date),
		RecordedAt:     d.RecordedAt,
	}
}

// ToDomainExchangeRate converts a model ExchangeRate to a domain ExchangeRate
func ToDomainExchangeRate(m models.ExchangeRate) domain.ExchangeRate {
	return domain.ExchangeRate{
		ExchangeRateID: m.ExchangeRateID,
		BaseCurrency:   m.BaseCurrency,
		TargetCurrency: m.TargetCurrency,
		Rate:           m.Rate,
		Date:           domain.CalendarDate(m.RateDate),
		RecordedAt:     m.RecordedAt.UTC(),
	}
}

// ToDomainExchangeRates converts a slice of rows.
func ToDomainExchangeRates(ms []models.ExchangeRate) []domain.ExchangeRate {
	return lo.Map(ms, func(m models.ExchangeRate, _ int) domain.ExchangeRate {
		return ToDomainExchangeRate(m)
	})
}
