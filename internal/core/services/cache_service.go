package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/domain"
	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCacheTTL applies when a caller passes a non-positive TTL.
	DefaultCacheTTL = 24 * time.Hour

	rateKeyPrefix   = "rate:"
	latestKeyPrefix = "latest:"
)

// RateKey is the cache key of one pair and date.
func RateKey(base, target string, date time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", rateKeyPrefix, domain.NormalizeCode(base), domain.NormalizeCode(target), domain.FormatDate(date))
}

// LatestKey is the cache key of the latest snapshot for base.
func LatestKey(base string) string {
	return latestKeyPrefix + domain.NormalizeCode(base)
}

// snapshotEntry is the cached form of one ExchangeRate. The rate travels as a
// decimal string so a round trip never loses digits.
type snapshotEntry struct {
	ExchangeRateID string `json:"id,omitempty"`
	BaseCurrency   string `json:"base"`
	TargetCurrency string `json:"target"`
	Rate           string `json:"rate"`
	Date           string `json:"date"`
	RecordedAt     int64  `json:"recordedAt,omitempty"`
}

// RateCacheService implements portssvc.RateCacheSvc on top of a CacheTransport.
type RateCacheService struct {
	BaseService
	transport  ports.CacheTransport
	defaultTTL time.Duration
	metrics    *metrics.RateMetrics
}

// CacheServiceOption configures a RateCacheService.
type CacheServiceOption func(*RateCacheService)

// WithDefaultTTL overrides DefaultCacheTTL.
func WithDefaultTTL(ttl time.Duration) CacheServiceOption {
	return func(s *RateCacheService) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithCacheMetrics records hit and miss counters.
func WithCacheMetrics(m *metrics.RateMetrics) CacheServiceOption {
	return func(s *RateCacheService) {
		s.metrics = m
	}
}

// WithCacheLogger sets the logger used outside request scope.
func WithCacheLogger(logger *slog.Logger) CacheServiceOption {
	return func(s *RateCacheService) {
		s.Logger = logger
	}
}

// NewRateCacheService creates a cache layer over transport.
func NewRateCacheService(transport ports.CacheTransport, opts ...CacheServiceOption) *RateCacheService {
	s := &RateCacheService{
		transport:  transport,
		defaultTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultTTL is the TTL used when callers pass zero.
func (s *RateCacheService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

func (s *RateCacheService) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

// reachable pings the transport. Only the status operations use it; reads and
// writes treat a failed command as an unreachable cache.
func (s *RateCacheService) reachable(ctx context.Context) bool {
	if s.transport == nil {
		return false
	}
	if err := s.transport.Ping(ctx); err != nil {
		s.LogDebug(ctx, "Cache transport unreachable", slog.String("error", err.Error()))
		return false
	}
	return true
}

// IsConnected reports whether the transport answers a ping.
func (s *RateCacheService) IsConnected(ctx context.Context) bool {
	return s.reachable(ctx)
}

// GetRate returns the cached rate for a pair and date.
func (s *RateCacheService) GetRate(ctx context.Context, base, target string, date time.Time) (decimal.Decimal, bool) {
	if s.transport == nil {
		s.metrics.CacheLookup("rate", "unavailable")
		return decimal.Zero, false
	}

	key := RateKey(base, target, date)
	raw, err := s.transport.Get(ctx, key)
	if err != nil {
		s.metrics.CacheLookup("rate", s.lookupFailure(ctx, err, key))
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(string(raw))
	if err != nil {
		s.LogError(ctx, err, "Cached rate is not a decimal, ignoring", slog.String("key", key))
		s.metrics.CacheLookup("rate", "miss")
		return decimal.Zero, false
	}
	s.metrics.CacheLookup("rate", "hit")
	return rate, true
}

// SetRate caches a rate. A non-positive ttl means the default.
func (s *RateCacheService) SetRate(ctx context.Context, base, target string, date time.Time, rate decimal.Decimal, ttl time.Duration) bool {
	if s.transport == nil {
		return false
	}
	key := RateKey(base, target, date)
	if err := s.transport.SetWithTTL(ctx, key, []byte(rate.String()), s.ttlOrDefault(ttl)); err != nil {
		s.LogError(ctx, err, "Cache set failed", slog.String("key", key))
		return false
	}
	return true
}

// DeleteRate drops one cached rate.
func (s *RateCacheService) DeleteRate(ctx context.Context, base, target string, date time.Time) bool {
	return s.delete(ctx, RateKey(base, target, date))
}

// GetLatestSnapshot returns the cached latest-rates snapshot for base.
func (s *RateCacheService) GetLatestSnapshot(ctx context.Context, base string) (domain.RateSnapshot, bool) {
	if s.transport == nil {
		s.metrics.CacheLookup("latest", "unavailable")
		return nil, false
	}

	key := LatestKey(base)
	raw, err := s.transport.Get(ctx, key)
	if err != nil {
		s.metrics.CacheLookup("latest", s.lookupFailure(ctx, err, key))
		return nil, false
	}

	snapshot, err := decodeSnapshot(raw)
	if err != nil {
		s.LogError(ctx, err, "Cached snapshot is malformed, ignoring", slog.String("key", key))
		s.metrics.CacheLookup("latest", "miss")
		return nil, false
	}
	s.metrics.CacheLookup("latest", "hit")
	return snapshot, true
}

// SetLatestSnapshot caches the latest-rates snapshot for base.
func (s *RateCacheService) SetLatestSnapshot(ctx context.Context, base string, snapshot domain.RateSnapshot, ttl time.Duration) bool {
	if s.transport == nil {
		return false
	}
	key := LatestKey(base)
	raw, err := encodeSnapshot(snapshot)
	if err != nil {
		s.LogError(ctx, err, "Failed to encode snapshot", slog.String("key", key))
		return false
	}
	if err := s.transport.SetWithTTL(ctx, key, raw, s.ttlOrDefault(ttl)); err != nil {
		s.LogError(ctx, err, "Cache set failed", slog.String("key", key))
		return false
	}
	return true
}

// DeleteLatestSnapshot drops the cached snapshot for base.
func (s *RateCacheService) DeleteLatestSnapshot(ctx context.Context, base string) bool {
	return s.delete(ctx, LatestKey(base))
}

func (s *RateCacheService) delete(ctx context.Context, key string) bool {
	if s.transport == nil {
		return false
	}
	if err := s.transport.Delete(ctx, key); err != nil {
		s.LogError(ctx, err, "Cache delete failed", slog.String("key", key))
		return false
	}
	return true
}

// InvalidateAll removes every rate and latest-snapshot entry. Other keys in a
// shared backend, such as limiter windows and job locks, are left alone.
func (s *RateCacheService) InvalidateAll(ctx context.Context) bool {
	if s.transport == nil {
		return false
	}
	var removed int64
	for _, prefix := range []string{rateKeyPrefix, latestKeyPrefix} {
		n, err := s.transport.DeletePrefix(ctx, prefix)
		if err != nil {
			s.LogError(ctx, err, "Cache invalidation failed", slog.String("prefix", prefix))
			return false
		}
		removed += n
	}
	s.LogInfo(ctx, "Cache invalidated",
		slog.String("backend", s.transport.Backend()),
		slog.Int64("removed", removed))
	return true
}

// Compact asks the transport to reclaim memory from expired entries.
func (s *RateCacheService) Compact(ctx context.Context) bool {
	if s.transport == nil {
		return false
	}
	if err := s.transport.Compact(ctx); err != nil {
		s.LogError(ctx, err, "Cache compaction failed")
		return false
	}
	return true
}

// Stats reports cache health and key counts.
func (s *RateCacheService) Stats(ctx context.Context) domain.CacheStats {
	stats := domain.CacheStats{
		Status:        domain.CacheStatusDisconnected,
		CacheTTLHours: int64(s.defaultTTL / time.Hour),
	}
	if s.transport != nil {
		stats.Backend = s.transport.Backend()
	}
	if !s.reachable(ctx) {
		return stats
	}

	info, err := s.transport.Info(ctx)
	if err != nil {
		s.LogError(ctx, err, "Cache info failed")
		stats.Status = domain.CacheStatusError
		stats.ErrorMessage = err.Error()
		return stats
	}
	rateKeys, err := s.transport.CountKeys(ctx, rateKeyPrefix)
	if err != nil {
		s.LogError(ctx, err, "Cache key count failed", slog.String("prefix", rateKeyPrefix))
		stats.Status = domain.CacheStatusError
		stats.ErrorMessage = err.Error()
		return stats
	}
	latestKeys, err := s.transport.CountKeys(ctx, latestKeyPrefix)
	if err != nil {
		s.LogError(ctx, err, "Cache key count failed", slog.String("prefix", latestKeyPrefix))
		stats.Status = domain.CacheStatusError
		stats.ErrorMessage = err.Error()
		return stats
	}

	stats.Status = domain.CacheStatusConnected
	stats.RateKeys = rateKeys
	stats.LatestKeys = latestKeys
	stats.TotalKeys = parseInt(info["total_keys"])
	stats.UptimeSeconds = parseInt(info["uptime_in_seconds"])
	stats.MemoryUsage = info["used_memory_human"]
	return stats
}

// lookupFailure logs a failed Get and names the metric outcome.
func (s *RateCacheService) lookupFailure(ctx context.Context, err error, key string) string {
	if errors.Is(err, ports.ErrCacheMiss) {
		return "miss"
	}
	s.LogWarn(ctx, "Cache get failed, treating as miss", slog.String("key", key), slog.String("error", err.Error()))
	return "unavailable"
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func encodeSnapshot(snapshot domain.RateSnapshot) ([]byte, error) {
	entries := make(map[string]snapshotEntry, len(snapshot))
	for target, r := range snapshot {
		entry := snapshotEntry{
			ExchangeRateID: r.ExchangeRateID,
			BaseCurrency:   r.BaseCurrency,
			TargetCurrency: r.TargetCurrency,
			Rate:           r.Rate.String(),
			Date:           domain.FormatDate(r.Date),
		}
		if !r.RecordedAt.IsZero() {
			entry.RecordedAt = r.RecordedAt.UnixMilli()
		}
		entries[target] = entry
	}
	return json.Marshal(entries)
}

func decodeSnapshot(raw []byte) (domain.RateSnapshot, error) {
	var entries map[string]snapshotEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	snapshot := make(domain.RateSnapshot, len(entries))
	for target, e := range entries {
		rate, err := decimal.NewFromString(e.Rate)
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", target, err)
		}
		date, err := domain.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("date for %s: %w", target, err)
		}
		r := domain.ExchangeRate{
			ExchangeRateID: e.ExchangeRateID,
			BaseCurrency:   e.BaseCurrency,
			TargetCurrency: e.TargetCurrency,
			Rate:           rate,
			Date:           date,
		}
		if e.RecordedAt != 0 {
			r.RecordedAt = time.UnixMilli(e.RecordedAt).UTC()
		}
		snapshot[target] = r
	}
	return snapshot, nil
}

var _ portssvc.RateCacheSvc = (*RateCacheService)(nil)
