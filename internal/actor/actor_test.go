package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/cronsched"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func everySecond(t *testing.T) *cronsched.Schedule {
	s, err := cronsched.Parse("* * * * * ?")
	require.NoError(t, err)
	return s
}

func TestFireRunsHandlerAtMostOnceAtATime(t *testing.T) {
	schedule := everySecond(t)
	var running int32
	var overlapped int32
	release := make(chan struct{})
	var calls int32

	handler := func(context.Context) {
		atomic.AddInt32(&calls, 1)
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			atomic.StoreInt32(&overlapped, 1)
		}
		<-release
		atomic.StoreInt32(&running, 0)
	}

	a := New(1, schedule, handler, types.Forever(), time.Now(), types.Order)
	require.True(t, a.Fire())
	require.True(t, a.Fire())

	release <- struct{}{}
	release <- struct{}{}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&overlapped))
}

func TestFireReturnsFalseAfterDestroy(t *testing.T) {
	schedule := everySecond(t)
	a := New(1, schedule, func(context.Context) {}, types.Once(), time.Now(), types.Order)
	a.Destroy()

	require.Eventually(t, func() bool {
		return !a.Fire()
	}, time.Second, time.Millisecond)
}

func TestNextInstantReportsUpcomingInstant(t *testing.T) {
	a := New(1, everySecond(t), func(context.Context) {}, types.Once(), time.Now(), types.Order)
	at, ok := a.NextInstant()
	assert.True(t, ok)
	assert.False(t, at.IsZero())
}

func TestTickRepeatHonorsRepeatModes(t *testing.T) {
	schedule := everySecond(t)

	once := New(1, schedule, func(context.Context) {}, types.Once(), time.Now(), types.Order)
	assert.False(t, once.TickRepeat())

	forever := New(2, schedule, func(context.Context) {}, types.Forever(), time.Now(), types.Order)
	assert.True(t, forever.TickRepeat())
	assert.True(t, forever.TickRepeat())

	twice := New(3, schedule, func(context.Context) {}, types.Times(2), time.Now(), types.Order)
	assert.True(t, twice.TickRepeat())
	assert.False(t, twice.TickRepeat())
}

func TestGetSetTargetRoundTrip(t *testing.T) {
	a := New(1, everySecond(t), func(context.Context) {}, types.Forever(), time.Now(), types.Order)
	want := time.Now().Add(time.Hour).Truncate(time.Second)
	a.SetTarget(want)
	assert.True(t, a.GetTarget().Equal(want))
}

func TestUpdateCronRecomputesTarget(t *testing.T) {
	a := New(1, everySecond(t), func(context.Context) {}, types.Forever(), time.Now(), types.Order)
	farFuture := time.Now().Add(24 * time.Hour)
	a.SetTarget(farFuture)

	require.True(t, a.UpdateCron(everySecond(t)))
	assert.True(t, a.GetTarget().Before(farFuture))
}

func TestPauseCapturesSnapshotAndTerminatesActor(t *testing.T) {
	schedule := everySecond(t)
	target := time.Now().Add(5 * time.Second)
	a := New(42, schedule, func(context.Context) {}, types.Times(3), target, types.Order)

	snap, ok := a.Pause()
	require.True(t, ok)
	assert.Equal(t, types.TaskID(42), snap.ID)
	assert.True(t, snap.TargetInstant.Equal(target))
	assert.Equal(t, types.RepeatTimes, snap.Repeat.Kind)

	require.Eventually(t, func() bool {
		return !a.Fire()
	}, time.Second, time.Millisecond)
}

func TestResumeRestoresRemainingTimesBudget(t *testing.T) {
	schedule := everySecond(t)
	a := New(7, schedule, func(context.Context) {}, types.Times(2), time.Now(), types.Order)
	require.True(t, a.TickRepeat())
	snap, ok := a.Pause()
	require.True(t, ok)

	resumed := Resume(snap, schedule)
	assert.Equal(t, types.TaskID(7), resumed.ID())
	assert.False(t, resumed.TickRepeat())
}

func TestHandlerPanicDoesNotKillActorLoop(t *testing.T) {
	schedule := everySecond(t)
	var calls int32
	a := New(1, schedule, func(context.Context) {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	}, types.Forever(), time.Now(), types.Order)

	require.True(t, a.Fire())
	require.True(t, a.Fire())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, time.Millisecond)
}

func TestHandlerReturnsSharedImmutableReference(t *testing.T) {
	handler := func(context.Context) {}
	a := New(1, everySecond(t), handler, types.Forever(), time.Now(), types.Disorder)
	assert.NotNil(t, a.Handler())
	assert.Equal(t, types.Disorder, a.OrderType())
}
