package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
)

const (
	// DefaultRequestsPerHour is the admission ceiling when none is configured.
	DefaultRequestsPerHour int64 = 1000

	windowSeconds = 3600
)

// HourBucket is the fixed-window index of t.
func HourBucket(t time.Time) int64 {
	return t.Unix() / windowSeconds
}

// FixedWindowLimiter admits at most ceiling requests per client per clock hour.
// Counting lives in a WindowStore, so the same limiter serves one instance
// (memory store) or a fleet (shared store).
type FixedWindowLimiter struct {
	BaseService
	store   ports.WindowStore
	ceiling int64
	now     func() time.Time
	metrics *metrics.RateMetrics
}

// LimiterOption configures a FixedWindowLimiter.
type LimiterOption func(*FixedWindowLimiter)

// WithLimiterClock replaces time.Now.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLimiterMetrics counts rejections.
func WithLimiterMetrics(m *metrics.RateMetrics) LimiterOption {
	return func(l *FixedWindowLimiter) {
		l.metrics = m
	}
}

// NewFixedWindowLimiter creates a limiter. A non-positive ceiling falls back
// to DefaultRequestsPerHour.
func NewFixedWindowLimiter(store ports.WindowStore, ceiling int64, opts ...LimiterOption) *FixedWindowLimiter {
	if ceiling <= 0 {
		ceiling = DefaultRequestsPerHour
	}
	l := &FixedWindowLimiter{
		store:   store,
		ceiling: ceiling,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ceiling is the per-hour request ceiling.
func (l *FixedWindowLimiter) Ceiling() int64 {
	return l.ceiling
}

// Allow counts one request for clientID and reports whether it is admitted.
// A failing store admits the request.
func (l *FixedWindowLimiter) Allow(ctx context.Context, clientID string) bool {
	bucket := HourBucket(l.now())
	allowed, count, err := l.store.Acquire(ctx, clientID, bucket, l.ceiling)
	if err != nil {
		l.LogError(ctx, err, "Admission store failed, admitting request", slog.String("client_id", clientID))
		return true
	}
	if !allowed {
		l.LogDebug(ctx, "Admission rejected", slog.String("client_id", clientID), slog.Int64("count", count))
		l.metrics.AdmissionRejected()
	}
	return allowed
}

var _ portssvc.AdmissionLimiterSvc = (*FixedWindowLimiter)(nil)
