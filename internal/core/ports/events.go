package ports

import (
	"context"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
)

// RateEventPublisher notifies downstream consumers about refreshed rates.
type RateEventPublisher interface {
	PublishRatesRefreshed(ctx context.Context, event domain.RatesRefreshedEvent) error
	Close() error
}
