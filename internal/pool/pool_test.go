package pool

// ============================================================================
// Work-Stealing Pool Test File
// Purpose: Verify lifecycle guards, concurrent execution, and that stolen
//          work actually runs under deque/injector contention.
// ============================================================================

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherish-ltt/lynn-sundial/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBeforeStart(t *testing.T) {
	p := New(4)
	err := p.Submit(Job{TaskID: 1, Run: func(context.Context) {}})
	assert.ErrorIs(t, err, ErrPoolNotStarted)
}

func TestSubmitAfterStop(t *testing.T) {
	p := New(4)
	p.Start()
	p.Stop()
	err := p.Submit(Job{TaskID: 1, Run: func(context.Context) {}})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestAllJobsRun(t *testing.T) {
	p := New(4)
	p.Start()
	defer p.Stop()

	const n = 200
	var ran int64
	for i := 0; i < n; i++ {
		require.NoError(t, p.Submit(Job{
			TaskID: types.TaskID(i),
			Run:    func(context.Context) { atomic.AddInt64(&ran, 1) },
		}))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ran) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSingleWorkerStillDrainsInjector(t *testing.T) {
	p := New(1)
	p.Start()
	defer p.Stop()

	done := make(chan struct{})
	require.NoError(t, p.Submit(Job{TaskID: 1, Run: func(context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	p := New(2)
	p.Start()
	defer p.Stop()

	require.NoError(t, p.Submit(Job{TaskID: 1, Run: func(context.Context) { panic("boom") }}))

	done := make(chan struct{})
	require.NoError(t, p.Submit(Job{TaskID: 2, Run: func(context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped processing after a handler panic")
	}
}

func TestStealingBalancesBurstAcrossWorkers(t *testing.T) {
	p := New(8)
	p.Start()
	defer p.Stop()

	const n = 500
	var ran int64
	for i := 0; i < n; i++ {
		require.NoError(t, p.Submit(Job{
			TaskID: types.TaskID(i),
			Run:    func(context.Context) { atomic.AddInt64(&ran, 1) },
		}))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ran) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueueDepthReflectsBacklog(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	p.Start()
	defer func() {
		close(block)
		p.Stop()
	}()

	require.NoError(t, p.Submit(Job{TaskID: 1, Run: func(context.Context) { <-block }}))
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{TaskID: types.TaskID(i + 2), Run: func(context.Context) {}}))
	}

	require.Eventually(t, func() bool {
		return p.QueueDepth() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestStopWaitsForWorkers(t *testing.T) {
	p := New(2)
	p.Start()

	var ran int32
	require.NoError(t, p.Submit(Job{TaskID: 1, Run: func(context.Context) {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&ran, 1)
	}}))

	time.Sleep(5 * time.Millisecond)
	p.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}
