package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatch = 500

// Transport is the Redis-backed cache transport.
type Transport struct {
	client goredis.UniversalClient
}

func NewTransport(client goredis.UniversalClient) *Transport {
	return &Transport{client: client}
}

func (t *Transport) Backend() string { return "redis" }

func (t *Transport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *Transport) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := t.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (t *Transport) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis set %s: ttl must be positive", key)
	}
	if err := t.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, key string) error {
	return t.client.Del(ctx, key).Err()
}

// DeletePrefix walks prefix* with SCAN and deletes each batch. The database is
// shared with the limiter windows and job locks, so FLUSHDB is never used.
func (t *Transport) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := t.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := t.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del %s*: %w", prefix, err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Info returns the server INFO fields plus total_keys for the selected database.
func (t *Transport) Info(ctx context.Context) (map[string]string, error) {
	raw, err := t.client.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis info: %w", err)
	}
	info := parseInfo(raw)

	size, err := t.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis dbsize: %w", err)
	}
	info["total_keys"] = strconv.FormatInt(size, 10)
	return info, nil
}

func parseInfo(raw string) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		info[k] = v
	}
	return info
}

// CountKeys walks the keyspace with SCAN, never KEYS, so a large cache does
// not block the server.
func (t *Transport) CountKeys(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor uint64
		count  int64
	)
	for {
		keys, next, err := t.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// Compact runs MEMORY PURGE. Servers that do not offer the command are
// treated as having nothing to purge.
func (t *Transport) Compact(ctx context.Context) error {
	err := t.client.Do(ctx, "MEMORY", "PURGE").Err()
	if err != nil && isUnsupported(err) {
		return nil
	}
	return err
}

func isUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown command") || strings.Contains(msg, "unknown subcommand")
}

var _ ports.CacheTransport = (*Transport)(nil)
