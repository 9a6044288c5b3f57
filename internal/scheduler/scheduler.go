package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/fx_rates_service/internal/apperrors"
	portssvc "github.com/SscSPs/fx_rates_service/internal/core/ports/services"
	"github.com/SscSPs/fx_rates_service/internal/metrics"
)

// Job outcomes as reported by Jobs().
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeLockSkipped = "skipped_locked"
)

// ErrStopped is returned by RunNow once Stop has been called.
var ErrStopped = fmt.Errorf("%w: scheduler stopped", apperrors.ErrUnavailable)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Locker guards a job run across instances. Acquire reports false when
// another holder has the lock.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), acquired bool, err error)
}

type job struct {
	id      string
	trigger Trigger
	fn      JobFunc
	running atomic.Bool

	// guarded by Scheduler.mu
	next        time.Time
	lastRun     *time.Time
	lastOutcome string
	skipped     int64
}

// Scheduler runs registered jobs from a single loop goroutine. A job never
// overlaps itself: a trigger that fires while the job is running is dropped.
type Scheduler struct {
	logger  *slog.Logger
	now     func() time.Time
	locker  Locker
	metrics *metrics.RateMetrics

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	started bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker adds a cross-instance guard taken around every run.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records job runs.
func WithMetrics(m *metrics.RateMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New creates an idle scheduler.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger: logger.With(slog.String("component", "scheduler")),
		now:    time.Now,
		jobs:   make(map[string]*job),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job. Registering an id twice is an error.
func (s *Scheduler) Register(id string, trigger Trigger, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %q already registered", id)
	}
	s.jobs[id] = &job{
		id:      id,
		trigger: trigger,
		fn:      fn,
		next:    trigger.Next(s.now()),
	}
	s.order = append(s.order, id)
	s.logger.Info("Job registered", slog.String("job", id), slog.String("trigger", trigger.String()))
	s.signal()
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start launches the loop. Calling it again while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Info("Scheduler already started, ignoring Start")
		return
	}
	s.started = true
	s.stopped = false
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.done = make(chan struct{})
	go s.loop(s.runCtx, s.done)
	s.logger.Info("Scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop ends the loop and waits for in-flight runs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.stopped = true
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait, ok := s.untilNext()
		if !ok {
			wait = time.Hour
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) untilNext() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return 0, false
	}
	now := s.now()
	var earliest time.Time
	for _, j := range s.jobs {
		if earliest.IsZero() || j.next.Before(earliest) {
			earliest = j.next
		}
	}
	wait := earliest.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

func (s *Scheduler) fireDue() {
	s.mu.Lock()
	now := s.now()
	var due []*job
	for _, id := range s.order {
		j := s.jobs[id]
		if !j.next.After(now) {
			due = append(due, j)
			j.next = j.trigger.Next(now)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		_ = s.dispatch(j)
	}
}

// dispatch starts j unless it is already running or the scheduler has been
// stopped. Runs before Start use a background context.
func (s *Scheduler) dispatch(j *job) error {
	if !j.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		j.skipped++
		s.mu.Unlock()
		s.logger.Warn("Job still running, trigger coalesced", slog.String("job", j.id))
		s.metrics.JobRun(j.id, "skipped", 0)
		return fmt.Errorf("%w: %s", apperrors.ErrJobRunning, j.id)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		j.running.Store(false)
		return ErrStopped
	}
	ctx := context.Background()
	if s.started {
		ctx = s.runCtx
	}
	// Add happens under mu, so it cannot race the Wait in Stop.
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, j)
	return nil
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	defer s.wg.Done()
	defer j.running.Store(false)

	logger := s.logger.With(slog.String("job", j.id))
	start := s.now()

	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, "scheduler:"+j.id)
		if err != nil || !acquired {
			if err != nil {
				logger.Error("Failed to acquire job lock", slog.String("error", err.Error()))
			} else {
				logger.Info("Job lock held by another instance, skipping run")
			}
			s.record(j, start, OutcomeLockSkipped)
			s.metrics.JobRun(j.id, "skipped", 0)
			return
		}
		defer release()
	}

	logger.Info("Job started")
	err := j.fn(ctx)
	elapsed := s.now().Sub(start)
	if err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()), slog.Duration("duration", elapsed))
		s.record(j, start, OutcomeFailure)
		s.metrics.JobRun(j.id, OutcomeFailure, elapsed.Seconds())
		return
	}
	logger.Info("Job finished", slog.Duration("duration", elapsed))
	s.record(j, start, OutcomeSuccess)
	s.metrics.JobRun(j.id, OutcomeSuccess, elapsed.Seconds())
}

func (s *Scheduler) record(j *job, at time.Time, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.lastRun = &at
	j.lastOutcome = outcome
}

// RunNow starts jobID immediately through the same single-flight guard. It
// does not wait for the run to finish.
func (s *Scheduler) RunNow(ctx context.Context, jobID string) error {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: job %q", apperrors.ErrNotFound, jobID)
	}
	if err := s.dispatch(j); err != nil {
		return err
	}
	s.logger.Info("Job triggered manually", slog.String("job", jobID))
	return nil
}

// Jobs reports every registered job in registration order.
func (s *Scheduler) Jobs() []portssvc.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]portssvc.JobStatus, 0, len(s.order))
	for _, id := range s.order {
		j := s.jobs[id]
		status := portssvc.JobStatus{
			ID:          j.id,
			Trigger:     j.trigger.String(),
			Running:     j.running.Load(),
			NextRun:     j.next,
			LastOutcome: j.lastOutcome,
			Skipped:     j.skipped,
		}
		if j.lastRun != nil {
			last := *j.lastRun
			status.LastRun = &last
		}
		out = append(out, status)
	}
	return out
}

var _ portssvc.JobControllerSvc = (*Scheduler)(nil)
