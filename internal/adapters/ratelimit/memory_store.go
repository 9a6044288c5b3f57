package ratelimit

import (
	"context"
	"sync"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
)

type clientWindow struct {
	mu      sync.Mutex
	buckets map[int64]int64
}

// MemoryStore keeps per-client counters in process memory. It is exact for a
// single instance. Each client has its own lock, so unrelated clients never
// contend.
type MemoryStore struct {
	clients sync.Map // clientID -> *clientWindow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) window(clientID string) *clientWindow {
	if w, ok := s.clients.Load(clientID); ok {
		return w.(*clientWindow)
	}
	w, _ := s.clients.LoadOrStore(clientID, &clientWindow{buckets: make(map[int64]int64, 2)})
	return w.(*clientWindow)
}

// Acquire prunes buckets older than bucket-1, then counts the request unless
// the current bucket already reached ceiling.
func (s *MemoryStore) Acquire(_ context.Context, clientID string, bucket, ceiling int64) (bool, int64, error) {
	w := s.window(clientID)
	w.mu.Lock()
	defer w.mu.Unlock()

	for b := range w.buckets {
		if b < bucket-1 {
			delete(w.buckets, b)
		}
	}

	count := w.buckets[bucket]
	if count >= ceiling {
		return false, count, nil
	}
	count++
	w.buckets[bucket] = count
	return true, count, nil
}

// bucketCount reports how many buckets are retained for clientID.
func (s *MemoryStore) bucketCount(clientID string) int {
	w := s.window(clientID)
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buckets)
}

var _ ports.WindowStore = (*MemoryStore)(nil)
