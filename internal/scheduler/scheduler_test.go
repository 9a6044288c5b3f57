package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	"github.com/SscSPs/fx_rates_service/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, _ string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, true, nil
}

func TestRunNow_CoalescesWhileRunning(t *testing.T) {
	s := scheduler.New(quietLogger())
	release := make(chan struct{})
	var runs atomic.Int32

	require.NoError(t, s.Register("blocking", scheduler.Every(time.Hour), func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}))

	require.NoError(t, s.RunNow(context.Background(), "blocking"))
	require.Eventually(t, func() bool { return s.Jobs()[0].Running }, time.Second, 5*time.Millisecond)

	err := s.RunNow(context.Background(), "blocking")
	assert.ErrorIs(t, err, apperrors.ErrJobRunning)

	close(release)
	require.Eventually(t, func() bool { return !s.Jobs()[0].Running }, time.Second, 5*time.Millisecond)

	status := s.Jobs()[0]
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int64(1), status.Skipped)
	assert.Equal(t, scheduler.OutcomeSuccess, status.LastOutcome)
	require.NotNil(t, status.LastRun)
}

func TestRunNow_UnknownJob(t *testing.T) {
	s := scheduler.New(quietLogger())
	err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegister_DuplicateID(t *testing.T) {
	s := scheduler.New(quietLogger())
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register("job", scheduler.Every(time.Hour), noop))
	assert.Error(t, s.Register("job", scheduler.Every(time.Hour), noop))
}

func TestScheduler_FiresIntervalJobs(t *testing.T) {
	s := scheduler.New(quietLogger())
	var runs atomic.Int32
	require.NoError(t, s.Register("tick", scheduler.Every(20*time.Millisecond), func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStop_WaitsForInFlightRun(t *testing.T) {
	s := scheduler.New(quietLogger())
	started := make(chan struct{})
	var finished atomic.Bool

	require.NoError(t, s.Register("slow", scheduler.Every(time.Hour), func(ctx context.Context) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	}))

	s.Start(context.Background())
	require.NoError(t, s.RunNow(context.Background(), "slow"))
	<-started

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := scheduler.New(quietLogger())
	started := make(chan struct{})

	require.NoError(t, s.Register("waiting", scheduler.Every(time.Hour), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Start(context.Background())
	require.NoError(t, s.RunNow(context.Background(), "waiting"))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, scheduler.OutcomeFailure, s.Jobs()[0].LastOutcome)
}

func TestRunNow_RefusedAfterStop(t *testing.T) {
	s := scheduler.New(quietLogger())
	var runs atomic.Int32
	require.NoError(t, s.Register("daily", scheduler.Every(time.Hour), func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start(context.Background())
	require.NoError(t, s.Stop(context.Background()))

	err := s.RunNow(context.Background(), "daily")
	assert.ErrorIs(t, err, scheduler.ErrStopped)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.False(t, s.Jobs()[0].Running)
	assert.Zero(t, runs.Load())

	s.Start(context.Background())
	require.NoError(t, s.RunNow(context.Background(), "daily"))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestLocker_SkipsWhenHeldElsewhere(t *testing.T) {
	locker := &fakeLocker{held: true}
	s := scheduler.New(quietLogger(), scheduler.WithLocker(locker))
	var runs atomic.Int32

	require.NoError(t, s.Register("guarded", scheduler.Every(time.Hour), func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.RunNow(context.Background(), "guarded"))
	require.Eventually(t, func() bool {
		return s.Jobs()[0].LastOutcome == scheduler.OutcomeLockSkipped
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	locker.mu.Lock()
	locker.held = false
	locker.mu.Unlock()

	require.Eventually(t, func() bool { return !s.Jobs()[0].Running }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.RunNow(context.Background(), "guarded"))
	require.Eventually(t, func() bool {
		return s.Jobs()[0].LastOutcome == scheduler.OutcomeSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestJobFailureIsRecorded(t *testing.T) {
	s := scheduler.New(quietLogger())
	require.NoError(t, s.Register("broken", scheduler.Every(time.Hour), func(context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow(context.Background(), "broken"))
	assert.Eventually(t, func() bool {
		return s.Jobs()[0].LastOutcome == scheduler.OutcomeFailure
	}, time.Second, 5*time.Millisecond)
}
