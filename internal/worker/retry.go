package worker

import (
	"math"
	"time"
)

// RetryPolicy defines exponential backoff for failed scheduled jobs.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// ReconcilePolicy is the backoff for background re-fetches after a user action.
func ReconcilePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
}

// withDefaults fills zero fields from ReconcilePolicy, except MaxRetries:
// zero there means a single attempt.
func (r RetryPolicy) withDefaults() RetryPolicy {
	def := ReconcilePolicy()
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// Exhausted reports whether a job that has failed attempt times gives up.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt > r.MaxRetries
}

// NextDelay returns the wait before retry number attempt (1-based), clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	r = r.withDefaults()

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = r.InitialDelay
	}
	return d
}
