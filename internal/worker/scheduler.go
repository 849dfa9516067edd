package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is a unit of deferred work.
type Job func(ctx context.Context) error

type scheduledJob struct {
	key string
	seq uint64
	job Job
}

type pendingJob struct {
	timer *time.Timer
	seq   uint64
	job   Job
}

// Scheduler runs delayed jobs keyed by name. Scheduling a key that is
// still pending replaces its job and restarts the delay, so a burst of
// calls for one key runs once.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pendingJob
	seq     uint64
	queue   chan scheduledJob
	retry   RetryPolicy
	logger  *zerolog.Logger
	running sync.WaitGroup
}

// NewScheduler builds a scheduler. Start must run for queued jobs to execute.
func NewScheduler(retry RetryPolicy, logger *zerolog.Logger) *Scheduler {
	retry = retry.withDefaults()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Scheduler{
		pending: make(map[string]*pendingJob),
		queue:   make(chan scheduledJob, 128),
		retry:   retry,
		logger:  logger,
	}
}

// Schedule arranges for job to run after delay.
func (s *Scheduler) Schedule(key string, delay time.Duration, job func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}

	s.seq++
	seq := s.seq
	p := &pendingJob{seq: seq, job: job}
	p.timer = time.AfterFunc(delay, func() { s.fire(key, seq) })
	s.pending[key] = p
}

// Pending returns the number of jobs waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(key string, seq uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.seq != seq {
		// Superseded by a later Schedule call.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	select {
	case s.queue <- scheduledJob{key: key, seq: seq, job: p.job}:
	default:
		s.logger.Warn().Str("key", key).Msg("scheduler queue full, job dropped")
	}
}

// Start launches main loop; stops when ctx is done. Pending timers are
// cancelled on stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Msg("scheduler started")
	defer s.logger.Info().Msg("scheduler stopped")

	for {
		select {
		case <-ctx.Done():
			s.cancelPending()
			s.running.Wait()
			return
		case task := <-s.queue:
			s.running.Add(1)
			go func() {
				defer s.running.Done()
				s.run(ctx, task)
			}()
		}
	}
}

func (s *Scheduler) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

func (s *Scheduler) run(ctx context.Context, task scheduledJob) {
	for attempt := 1; ; attempt++ {
		err := task.job(ctx)
		if err == nil {
			return
		}

		if s.retry.Exhausted(attempt) || ctx.Err() != nil {
			s.logger.Error().Err(err).Str("key", task.key).Int("attempts", attempt).Msg("scheduled job failed")
			return
		}

		delay := s.retry.NextDelay(attempt)
		s.logger.Warn().Err(err).Str("key", task.key).Dur("retry_in", delay).Msg("scheduled job failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
