package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// DefaultExpiry bounds how long a crashed holder blocks other instances.
const DefaultExpiry = 15 * time.Minute

// RedisLocker hands out single-attempt redsync mutexes, so at most one
// instance runs a given scheduled job at a time.
type RedisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, expiry time.Duration, logger *slog.Logger) *RedisLocker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		logger: logger,
	}
}

// Acquire tries the lock once. It reports false, without error, when another
// holder has it.
func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(), bool, error) {
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		var errTaken *redsync.ErrTaken
		if errors.As(err, &errTaken) || errors.Is(err, redsync.ErrFailed) {
			return nil, false, nil
		}
		return nil, false, err
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(ctx); err != nil || !ok {
			l.logger.Warn("Failed to release lock", slog.String("name", name), slog.Any("error", err))
		}
	}
	return release, true, nil
}
