package repositories

import "context"

// HealthChecker is implemented by stores that can report connectivity.
type HealthChecker interface {
	// Ping returns nil when the store is reachable.
	Ping(ctx context.Context) error
}
