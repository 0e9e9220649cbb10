package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// idleClock 的定时器从不触发，完成回调由测试直接调用
type idleClock struct{}

func (idleClock) AfterFunc(time.Duration, func()) Timer { return idleTimer{} }

func waitSucceeded(t *testing.T, d *Driver[string], gen uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := d.State()
		return st.Generation == gen && st.Status == RunSucceeded
	}, time.Second, time.Millisecond)
}

// 上一代的完成回调晚到时不会把新一代标记为已完成
func TestStaleCompletionIgnored(t *testing.T) {
	d := NewDriver[string](DriverOptions{Clock: idleClock{}})
	defer d.Close()

	run := func(context.Context) (string, error) { return "ok", nil }

	genA := d.Start(context.Background(), run)
	waitSucceeded(t, d, genA)
	d.mu.Lock()
	evA := d.completeEv
	d.mu.Unlock()
	require.NotZero(t, evA)

	genB := d.Start(context.Background(), run)
	waitSucceeded(t, d, genB)
	d.mu.Lock()
	evB := d.completeEv
	d.mu.Unlock()
	require.NotEqual(t, evA, evB)

	d.handleComplete(evA)
	assert.False(t, d.State().Finished)

	d.handleComplete(0)
	assert.False(t, d.State().Finished)

	d.handleComplete(evB)
	assert.True(t, d.State().Finished)
}
