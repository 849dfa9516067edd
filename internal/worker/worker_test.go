package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func startScheduler(t *testing.T, retry RetryPolicy) *Scheduler {
	t.Helper()
	s := NewScheduler(retry, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func TestSchedulerRunsAfterDelay(t *testing.T) {
	s := startScheduler(t, RetryPolicy{})

	var ran atomic.Int32
	started := time.Now()
	var ranAt atomic.Int64
	s.Schedule("trip:1", 30*time.Millisecond, func(context.Context) error {
		ranAt.Store(int64(time.Since(started)))
		ran.Add(1)
		return nil
	})

	assert.Equal(t, 1, s.Pending())
	assert.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Duration(ranAt.Load()), 30*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCoalescesSameKey(t *testing.T) {
	s := startScheduler(t, RetryPolicy{})

	var first, last atomic.Int32
	s.Schedule("trip:1", 40*time.Millisecond, func(context.Context) error { first.Add(1); return nil })
	s.Schedule("trip:1", 40*time.Millisecond, func(context.Context) error { last.Add(1); return nil })

	assert.Eventually(t, func() bool { return last.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "superseded job never runs")
	assert.Equal(t, int32(1), last.Load())
}

func TestSchedulerKeysAreIndependent(t *testing.T) {
	s := startScheduler(t, RetryPolicy{})

	var count atomic.Int32
	job := func(context.Context) error { count.Add(1); return nil }
	s.Schedule("trip:1", 10*time.Millisecond, job)
	s.Schedule("trip:2", 10*time.Millisecond, job)

	assert.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerRetries(t *testing.T) {
	s := startScheduler(t, RetryPolicy{MaxRetries: 2, InitialDelay: 5 * time.Millisecond})

	var attempts atomic.Int32
	s.Schedule("trip:9", time.Millisecond, func(context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	s := NewScheduler(RetryPolicy{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	var ran atomic.Int32
	s.Schedule("trip:1", 50*time.Millisecond, func(context.Context) error { ran.Add(1); return nil })
	cancel()
	<-done

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.NextDelay(3))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
	assert.Equal(t, 30*time.Second, RetryPolicy{}.NextDelay(10), "zero policy clamps to the reconcile ceiling")
}

func TestReconcilePolicy(t *testing.T) {
	p := ReconcilePolicy()
	assert.False(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.True(t, RetryPolicy{}.Exhausted(1), "zero retries means one attempt")
}
