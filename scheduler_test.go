package sundial

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherish-ltt/lynn-sundial/pkg/sundialerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	cfg := DefaultConfig()
	cfg.PoolSize = 2
	cfg.Tick = 5 * time.Millisecond
	return New(cfg)
}

func TestPushOrderTaskFires(t *testing.T) {
	s := newTestScheduler()
	defer s.reactor.Stop()

	var fired int64
	_, err := s.PushOrderTask("* * * * * ?", func(context.Context) {
		atomic.AddInt64(&fired, 1)
	}, Forever())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&fired) >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestPushDisorderTaskFiresConcurrently(t *testing.T) {
	s := newTestScheduler()
	defer s.reactor.Stop()

	var fired int64
	_, err := s.PushDisorderTask("* * * * * ?", func(context.Context) {
		atomic.AddInt64(&fired, 1)
	}, Forever())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&fired) >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestPauseRestartDestroyLifecycle(t *testing.T) {
	s := newTestScheduler()
	defer s.reactor.Stop()

	id, err := s.PushTask("0 0 0 1 1 ?", func(context.Context) {}, Once())
	require.NoError(t, err)

	status, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, Status(0), status)

	assert.True(t, s.PauseTask(id))
	assert.True(t, s.RestartTask(id))
	assert.True(t, s.DestroyTask(id))
	assert.False(t, s.DestroyTask(id))
}

func TestResumeAfterRealDelayDoesNotReplayStaleFiring(t *testing.T) {
	s := newTestScheduler()
	defer s.reactor.Stop()

	var fired int64
	id, err := s.PushOrderTask("* * * * * ?", func(context.Context) {
		atomic.AddInt64(&fired, 1)
	}, Forever())
	require.NoError(t, err)

	assert.True(t, s.PauseTask(id))

	// Outlive the paused target instant (cron fires every second) before
	// resuming, so a naive resume against the stale captured target would
	// replay it as an immediate catch-up firing.
	time.Sleep(1200 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&fired), "paused task must not fire while parked")

	assert.True(t, s.RestartTask(id))

	// A window too short for a freshly recomputed next-second target to
	// have arrived; a correct resume must not fire here.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&fired), "resume must not replay a firing for the instant paused through")

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&fired) >= 1
	}, 3*time.Second, 10*time.Millisecond, "task should resume firing on its recomputed schedule")
}

func TestUpdateCronRejectsInvalidExpression(t *testing.T) {
	s := newTestScheduler()
	defer s.reactor.Stop()

	id, err := s.PushTask("0 0 0 1 1 ?", func(context.Context) {}, Once())
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdateCron(id, "not a cron expression"), sundialerr.ErrCronParse)
}

func TestWaitAllReturnsOnContextCancellation(t *testing.T) {
	s := newTestScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.WaitAll(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll did not return after context cancellation")
	}
}
