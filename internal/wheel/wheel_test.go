package wheel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/actor"
	"github.com/cherish-ltt/lynn-sundial/internal/cronsched"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
	"github.com/stretchr/testify/require"
)

func everySecond(t *testing.T) *cronsched.Schedule {
	t.Helper()
	s, err := cronsched.Parse("* * * * * ?")
	require.NoError(t, err)
	return s
}

func TestPushRoutesToExpectedRing(t *testing.T) {
	w := New()
	sched := everySecond(t)

	a := actor.New(1, sched, func(context.Context) {}, types.Once(), time.Now(), types.Disorder)
	defer a.Destroy()

	w.Push(a, 30*time.Second)
	require.Len(t, w.sec.slots, secSlots)

	found := false
	for _, slot := range w.sec.slots {
		for _, parked := range slot {
			if parked == a {
				found = true
			}
		}
	}
	require.True(t, found, "task should be parked in the second ring")
}

func TestHourRingClampsOverflowToLastSlot(t *testing.T) {
	w := New()
	sched := everySecond(t)
	a := actor.New(1, sched, func(context.Context) {}, types.Once(), time.Now(), types.Disorder)
	defer a.Destroy()

	w.Push(a, 30*time.Hour)
	require.Len(t, w.hour.slots[hourSlots-1], 1)
}

func TestTickFiresDisorderTaskAndReportsJob(t *testing.T) {
	w := New()
	sched := everySecond(t)

	var fired int64
	a := actor.New(1, sched, func(context.Context) { atomic.AddInt64(&fired, 1) }, types.Once(), time.Now(), types.Disorder)
	defer a.Destroy()

	w.Push(a, 0)
	notices := notice.New()
	jobs := w.Tick(msInterval, notices)

	require.Len(t, jobs, 1)
	jobs[0].Run(context.Background())
	require.EqualValues(t, 1, atomic.LoadInt64(&fired))
}

func TestTickDestroysOnceTaskAfterFiring(t *testing.T) {
	w := New()
	sched := everySecond(t)
	a := actor.New(1, sched, func(context.Context) {}, types.Once(), time.Now(), types.Order)

	w.Push(a, 0)
	notices := notice.New()
	w.Tick(msInterval, notices)

	drained := notices.Drain()
	require.Len(t, drained, 1)
	require.Equal(t, types.Destroyed, drained[0].Status)
}

// TestSettleCascadesTaskNotYetDue exercises settle()'s degrade path
// directly: a task lands at the ring's current pointer (so it gets
// harvested) while its real target is still well beyond the fire
// threshold, and should be re-parked rather than fired.
func TestSettleCascadesTaskNotYetDue(t *testing.T) {
	w := New()
	sched := everySecond(t)

	target := time.Now().Add(300 * time.Millisecond)
	a := actor.New(1, sched, func(context.Context) {}, types.Forever(), target, types.Disorder)
	defer a.Destroy()

	notices := notice.New()
	var jobs []pool.Job
	w.settle(a, &jobs, notices)

	require.Empty(t, jobs)
	require.Empty(t, notices.Drain())

	// The task should have been re-parked somewhere in the millisecond ring
	// (a 300ms delay is under one second) rather than dropped.
	found := false
	for _, slot := range w.ms.slots {
		for _, parked := range slot {
			if parked == a {
				found = true
			}
		}
	}
	require.True(t, found, "unready task should be cascaded back into the wheel")
}
