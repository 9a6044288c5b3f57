package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/coocood/freecache"
)

// MinSizeBytes is the smallest cache freecache accepts; smaller sizes are raised.
const MinSizeBytes = 512 * 1024

// Transport is an in-process cache transport on freecache. It is used when no
// Redis is configured; entries are not shared between instances.
type Transport struct {
	cache   *freecache.Cache
	started time.Time
}

func NewTransport(sizeBytes int) *Transport {
	if sizeBytes < MinSizeBytes {
		sizeBytes = MinSizeBytes
	}
	return &Transport{
		cache:   freecache.NewCache(sizeBytes),
		started: time.Now(),
	}
}

func (t *Transport) Backend() string { return "memory" }

// Ping always succeeds; the cache lives in this process.
func (t *Transport) Ping(context.Context) error { return nil }

func (t *Transport) Get(_ context.Context, key string) ([]byte, error) {
	data, err := t.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return data, nil
}

func (t *Transport) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ttlSeconds := int(ttl / time.Second)
	if ttlSeconds <= 0 {
		return fmt.Errorf("failed to set key %s: ttl must be at least one second", key)
	}
	if err := t.cache.Set([]byte(key), value, ttlSeconds); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error.
func (t *Transport) Delete(_ context.Context, key string) error {
	t.cache.Del([]byte(key))
	return nil
}

func (t *Transport) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	var keys [][]byte
	p := []byte(prefix)
	it := t.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if bytes.HasPrefix(entry.Key, p) {
			keys = append(keys, entry.Key)
		}
	}

	var removed int64
	for _, k := range keys {
		if t.cache.Del(k) {
			removed++
		}
	}
	return removed, nil
}

func (t *Transport) Info(context.Context) (map[string]string, error) {
	return map[string]string{
		"total_keys":        strconv.FormatInt(t.cache.EntryCount(), 10),
		"uptime_in_seconds": strconv.FormatInt(int64(time.Since(t.started).Seconds()), 10),
		"hit_rate":          strconv.FormatFloat(t.cache.HitRate(), 'f', 4, 64),
		"expired_count":     strconv.FormatInt(t.cache.ExpiredCount(), 10),
		"evacuate_count":    strconv.FormatInt(t.cache.EvacuateCount(), 10),
	}, nil
}

func (t *Transport) CountKeys(_ context.Context, prefix string) (int64, error) {
	var count int64
	p := []byte(prefix)
	it := t.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if bytes.HasPrefix(entry.Key, p) {
			count++
		}
	}
	return count, nil
}

// Compact is a no-op: freecache reclaims expired slots lazily on write.
func (t *Transport) Compact(context.Context) error {
	return nil
}

var _ ports.CacheTransport = (*Transport)(nil)
