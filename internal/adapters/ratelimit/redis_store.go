package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// BucketTTL keeps a bucket long enough to serve as the previous one.
const BucketTTL = 2 * time.Hour

// acquireScript checks and increments in one round trip so concurrent
// instances cannot both admit the ceiling-th request.
var acquireScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local ceiling = tonumber(ARGV[1])
if current >= ceiling then
  return {0, current}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return {1, current}
`)

// RedisStore shares counters between instances through Redis.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func bucketKey(clientID string, bucket int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", clientID, bucket)
}

func (s *RedisStore) Acquire(ctx context.Context, clientID string, bucket, ceiling int64) (bool, int64, error) {
	res, err := acquireScript.Run(ctx, s.client,
		[]string{bucketKey(clientID, bucket)},
		ceiling, int64(BucketTTL/time.Second),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("ratelimit script: unexpected reply %v", res)
	}
	return res[0] == 1, res[1], nil
}

var _ ports.WindowStore = (*RedisStore)(nil)
