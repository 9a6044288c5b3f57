package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]ports.WindowStore {
	redisStore, _ := newRedisStore(t)
	return map[string]ports.WindowStore{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestAcquire_CeilingThenNextBucket(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const bucket = int64(475000)

			var got []bool
			for i := 0; i < 4; i++ {
				ok, _, err := store.Acquire(ctx, "client-a", bucket, 3)
				require.NoError(t, err)
				got = append(got, ok)
			}
			assert.Equal(t, []bool{true, true, true, false}, got)

			ok, count, err := store.Acquire(ctx, "client-a", bucket+1, 3)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(1), count)

			ok, _, err = store.Acquire(ctx, "client-b", bucket, 3)
			require.NoError(t, err)
			assert.True(t, ok, "clients are counted independently")
		})
	}
}

func TestAcquire_ConcurrentNeverExceedsCeiling(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var admitted atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, _, err := store.Acquire(context.Background(), "busy", 1, 10)
					if err == nil && ok {
						admitted.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int64(10), admitted.Load())
		})
	}
}

func TestMemoryStore_PrunesOldBuckets(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for b := int64(100); b < 105; b++ {
		_, _, err := store.Acquire(ctx, "c", b, 10)
		require.NoError(t, err)
	}
	// only the current and previous bucket survive
	assert.Equal(t, 2, store.bucketCount("c"))
}

func TestRedisStore_BucketExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	_, _, err := store.Acquire(context.Background(), "c", 7, 10)
	require.NoError(t, err)

	assert.Equal(t, BucketTTL, mr.TTL(bucketKey("c", 7)))
	mr.FastForward(BucketTTL + time.Second)
	assert.False(t, mr.Exists(bucketKey("c", 7)))
}

func TestRedisStore_ErrorWhenServerDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	_, _, err := store.Acquire(context.Background(), "c", 1, 10)
	assert.Error(t, err)
}
