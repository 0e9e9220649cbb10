package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRunsOnInterval(t *testing.T) {
	var n int32
	s := New()
	s.Add(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
}

func TestRunAtStartWithRetry(t *testing.T) {
	var n int32
	s := New()
	s.Add(Job{
		Name:          "warmup",
		Interval:      time.Hour,
		RunAtStart:    true,
		MaxRetry:      2,
		RetryInterval: time.Millisecond,
		Run: func(ctx context.Context) error {
			if atomic.AddInt32(&n, 1) < 3 {
				return errors.New("upstream down")
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Wait()
	assert.Equal(t, int32(3), atomic.LoadInt32(&n))
}

func TestInvalidJobIgnored(t *testing.T) {
	s := New()
	s.Add(Job{Name: "zero", Run: func(context.Context) error { return nil }})
	s.Add(Job{Name: "nil", Interval: time.Second})
	assert.Empty(t, s.jobs)
}

func TestOverlappingRunSkipped(t *testing.T) {
	var running, maxRunning int32
	release := make(chan struct{})
	s := New()
	s.Add(Job{
		Name:     "slow",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			defer atomic.AddInt32(&running, -1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	close(release)
	cancel()
	s.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}
