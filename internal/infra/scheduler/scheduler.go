package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"finance-billing/internal/infra/metrics"
	red "finance-billing/internal/infra/redis"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Tick(ctx context.Context) error
}

// Locker is satisfied by redis.RedisLocker. With several replicas, a tick
// runs only on the replica holding the job lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// Scheduler runs a Job every interval until stopped.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	job      Job
	locker   Locker
	log      *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a scheduler for job. locker may be nil. If interval <= 0
// it defaults to 1 minute.
func NewScheduler(interval time.Duration, job Job, locker Locker, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "scheduler").Str("job", job.Name()).Logger()
	timeout := interval
	if timeout > 5*time.Minute {
		timeout = 5 * time.Minute
	}
	return &Scheduler{interval: interval, timeout: timeout, job: job, locker: locker, log: &l}
}

// Start begins the loop in a background goroutine. Calling Start twice has no effect.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single tick with a bounded timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		key := red.JobLockKey(s.job.Name())
		token, err := s.locker.TryLock(runCtx, key, s.timeout)
		if errors.Is(err, red.ErrLockHeld) {
			s.log.Debug().Msg("job lease held elsewhere; skipping tick")
			return
		}
		if err != nil {
			// run anyway; every job here is idempotent
			s.log.Warn().Err(err).Msg("job lease unavailable")
		} else {
			defer func() {
				if err := s.locker.Unlock(context.Background(), key, token); err != nil {
					s.log.Warn().Err(err).Msg("job lease release failed")
				}
			}()
		}
	}

	start := time.Now()
	err := s.job.Tick(runCtx)
	metrics.IncJobRun(s.job.Name(), err)
	if err != nil {
		s.log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
	}
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
