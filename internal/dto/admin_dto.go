package dto

import (
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// CacheStatsResponse wraps cache statistics for the admin API.
type CacheStatsResponse struct {
	CacheStats domain.CacheStats `json:"cacheStats"`
}

// JobsResponse lists the registered scheduled jobs.
type JobsResponse struct {
	Jobs []portssvc.JobStatus `json:"jobs"`
}

// CurrenciesResponse lists the supported currencies.
type CurrenciesResponse struct {
	BaseCurrency string   `json:"baseCurrency"`
	Currencies   []string `json:"currencies"`
}

// HealthResponse reports service and dependency health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  bool      `json:"database"`
	Cache     bool      `json:"cache"`
}
