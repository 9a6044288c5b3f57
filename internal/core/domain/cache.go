package domain

// CacheStats is the monitoring view of the cache transport.
type CacheStats struct {
	Status        string `json:"status"`
	Backend       string `json:"backend,omitempty"`
	TotalKeys     int64  `json:"totalKeys"`
	RateKeys      int64  `json:"rateCacheKeys"`
	LatestKeys    int64  `json:"latestRatesKeys"`
	MemoryUsage   string `json:"memoryUsage,omitempty"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	CacheTTLHours int64  `json:"cacheTTLHours"`
	ErrorMessage  string `json:"message,omitempty"`
}

const (
	CacheStatusConnected    = "connected"
	CacheStatusDisconnected = "disconnected"
	CacheStatusError        = "error"
)
