package services

import (
	"context"
	"time"
)

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	ExchangeRate ExchangeRateSvcFacade
	Cache        RateCacheSvc
	Limiter      AdmissionLimiterSvc
	Jobs         JobControllerSvc
	Health       HealthSvc
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	Running     bool       `json:"running"`
	NextRun     time.Time  `json:"nextRun"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	LastOutcome string     `json:"lastOutcome,omitempty"`
	Skipped     int64      `json:"skippedRuns"`
}

// JobControllerSvc exposes the scheduler to the admin API.
type JobControllerSvc interface {
	Jobs() []JobStatus
	RunNow(ctx context.Context, jobID string) error
}

// HealthSvc reports dependency connectivity.
type HealthSvc interface {
	DatabaseHealthy(ctx context.Context) bool
	CacheHealthy(ctx context.Context) bool
}
