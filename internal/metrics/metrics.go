package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RateMetrics holds every collector the service exports. A nil *RateMetrics
// is valid and records nothing, which keeps tests free of registry setup.
type RateMetrics struct {
	CacheLookupsTotal      *prometheus.CounterVec
	ProviderAttemptsTotal  *prometheus.CounterVec
	ProviderFetchDuration  *prometheus.HistogramVec
	RatesStoredTotal       *prometheus.CounterVec
	RatesRejectedTotal     *prometheus.CounterVec
	JobRunsTotal           *prometheus.CounterVec
	JobDuration            *prometheus.HistogramVec
	AdmissionRejectedTotal prometheus.Counter
}

// NewRateMetrics registers the collectors on reg.
func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	factory := promauto.With(reg)
	return &RateMetrics{
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_cache_lookups_total",
				Help: "Cache lookups by key kind and result (hit, miss, unavailable)",
			},
			[]string{"kind", "result"},
		),
		ProviderAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_provider_attempts_total",
				Help: "Upstream provider attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		ProviderFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxrates_provider_fetch_duration_seconds",
				Help:    "Duration of upstream provider calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RatesStoredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_rates_stored_total",
				Help: "Rates upserted into the store by base currency",
			},
			[]string{"base"},
		),
		RatesRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_rates_rejected_total",
				Help: "Rates skipped during a daily fetch by base currency and reason",
			},
			[]string{"base", "reason"},
		),
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxrates_job_runs_total",
				Help: "Scheduled job runs by job and outcome (success, failure, skipped)",
			},
			[]string{"job", "outcome"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxrates_job_duration_seconds",
				Help:    "Duration of scheduled job runs",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
		AdmissionRejectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fxrates_admission_rejected_total",
				Help: "Requests rejected by the hourly admission limiter",
			},
		),
	}
}

func (m *RateMetrics) CacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func (m *RateMetrics) ProviderAttempt(provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	if seconds > 0 {
		m.ProviderFetchDuration.WithLabelValues(provider).Observe(seconds)
	}
}

func (m *RateMetrics) RateStored(base string) {
	if m == nil {
		return
	}
	m.RatesStoredTotal.WithLabelValues(base).Inc()
}

func (m *RateMetrics) RateRejected(base, reason string) {
	if m == nil {
		return
	}
	m.RatesRejectedTotal.WithLabelValues(base, reason).Inc()
}

func (m *RateMetrics) JobRun(job, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, outcome).Inc()
	if seconds > 0 {
		m.JobDuration.WithLabelValues(job).Observe(seconds)
	}
}

func (m *RateMetrics) AdmissionRejected() {
	if m == nil {
		return
	}
	m.AdmissionRejectedTotal.Inc()
}
