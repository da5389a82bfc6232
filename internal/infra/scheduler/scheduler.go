package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Job is the minimal interface the scheduler needs from the expiry notification use case.
type Job interface {
	// CheckAndNotify runs one scan and returns how many notifications were sent.
	CheckAndNotify(ctx context.Context) (int, error)
}

// Lease keeps two processes from running the same job at once. It is optional.
type Lease struct {
	Locker repository.SessionLocker
	Key    string
	TTL    time.Duration
}

// Status is a snapshot for the ops endpoint.
type Status struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run,omitempty"`
	LastSent int           `json:"last_sent"`
	LastErr  string        `json:"last_error,omitempty"`
}

// Scheduler periodically runs a Job. Runs happen inside the loop goroutine,
// so a slow run delays the next tick instead of overlapping with it. At most
// one run is in flight per process, whether it came from the ticker or RunOnce.
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	lease    *Lease
	log      *zerolog.Logger

	runMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun time.Time
	sent    int
	lastErr error
}

// NewScheduler constructs a scheduler that runs job.CheckAndNotify every interval.
// If interval <= 0 it defaults to 1 minute. lease may be nil.
func NewScheduler(name string, interval time.Duration, job Job, lease *Lease, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "Scheduler").Str("job", name).Logger()
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		lease:    lease,
		log:      &l,
	}
}

// Start begins the loop in a background goroutine. Starting a running scheduler only logs a warning.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.log.Warn().Msg("scheduler is already running")
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.log.Info().Dur("interval", s.interval).Msgf("scheduler started (every %s)", s.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish. Stopping an idle scheduler is a no-op.
// The scheduler counts as running until the loop has exited, so a Start issued
// meanwhile only warns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	if s.done == done {
		s.cancel, s.done = nil, nil
	}
	s.mu.Unlock()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.cancel != nil, Interval: s.interval, LastRun: s.lastRun, LastSent: s.sent}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}

// RunOnce executes the job immediately, outside the ticker. It returns
// domain.ErrLockNotAcquired when a run is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.run(ctx)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("context cancelled; stopping")
			return
		case <-ticker.C:
			// A stop request must not cut a scan short.
			_, _ = s.run(context.WithoutCancel(ctx))
		}
	}
}

// run has no deadline of its own; slow collaborators are bounded by their own timeouts.
func (s *Scheduler) run(ctx context.Context) (int, error) {
	if !s.runMu.TryLock() {
		s.log.Debug().Msg("previous run still in flight; skipping run")
		metrics.ObserveJobRun(s.name, "skipped", 0)
		return 0, domain.ErrLockNotAcquired
	}
	defer s.runMu.Unlock()

	if s.lease != nil {
		token, err := s.lease.Locker.TryLock(ctx, s.lease.Key, s.lease.TTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				s.log.Debug().Msg("lease held by another instance; skipping run")
			} else {
				s.log.Error().Err(err).Msg("lease acquisition failed; skipping run")
			}
			metrics.ObserveJobRun(s.name, "skipped", 0)
			return 0, err
		}
		defer func() {
			if err := s.lease.Locker.Unlock(context.WithoutCancel(ctx), s.lease.Key, token); err != nil {
				s.log.Warn().Err(err).Msg("lease release failed")
			}
		}()
	}

	start := time.Now()
	sent, err := s.job.CheckAndNotify(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.lastRun, s.sent, s.lastErr = start, sent, err
	s.mu.Unlock()

	if err != nil {
		metrics.ObserveJobRun(s.name, "failed", elapsed)
		s.log.Error().Err(err).Dur("elapsed", elapsed).Msg("job run failed")
		return sent, err
	}
	metrics.ObserveJobRun(s.name, "completed", elapsed)
	if sent > 0 {
		s.log.Info().Int("sent", sent).Dur("elapsed", elapsed).Msg("notifications sent")
	}
	return sent, nil
}
