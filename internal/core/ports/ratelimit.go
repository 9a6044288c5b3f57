package ports

import "context"

// WindowStore keeps fixed-window request counters per client.
type WindowStore interface {
	// Acquire increments the counter of (clientID, bucket) unless it already
	// reached ceiling. It reports whether the request was admitted and the
	// count after the call.
	Acquire(ctx context.Context, clientID string, bucket int64, ceiling int64) (bool, int64, error)
}
