// ============================================================================
// Sundial Tiered Time Wheel - Firing Schedule
// ============================================================================
//
// Package: internal/wheel
// File: wheel.go
// Function: Holds every live task parked at its next firing instant and,
//           once per reactor TICK, harvests whichever slots have rotated
//           into place - firing tasks whose instant has arrived and
//           cascading everyone else down into a finer-grained tier.
//
// Design Pattern:
//   Four-ring hierarchical time wheel (millisecond / second / minute /
//   hour), each ring a fixed array of FIFO slots advanced by one position
//   per ring-local interval. A task further than 1s out lives in a coarse
//   ring; as the ring rotates past it, it degrades into the next finer
//   ring until it lands in the millisecond ring close enough to fire.
//   This gives O(1) insert and amortized O(1) expiry regardless of how far
//   out a task's next occurrence sits, at the cost of only ever comparing
//   instants at whatever granularity the holding ring offers.
//
// Why one mutex:
//   All four rings are touched together on every Tick and a Push can land
//   in any one of them, so they are guarded by a single mutex rather than
//   one per ring. Contention is low: Tick and Push are both O(1)-ish and
//   only the reactor and registration path ever call in.
//
// ============================================================================

package wheel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/actor"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

var log = slog.Default().With("component", "wheel")

// fireThreshold is how close to its target instant a task must be before
// Tick fires it instead of cascading it down another ring. 100ms gives the
// coarser rings a little slack so a task doesn't miss its slot by landing
// one tick early or late.
const fireThreshold = 100 * time.Millisecond

// Ring tier settings: (slot count, ring interval). Mirrors a classic
// millisecond/second/minute/hour tiering - each ring's interval times its
// slot count is the span of wall-clock time that ring can address before a
// task parked in it must already have cascaded down.
const (
	msSlots, msInterval     = 10, 100 * time.Millisecond
	secSlots, secInterval   = 60, 1 * time.Second
	minSlots, minInterval   = 60, 1 * time.Minute
	hourSlots, hourInterval = 24, 1 * time.Hour
)

// TieredWheel is the scheduler's firing-order structure. The zero value is
// not usable; construct with New.
type TieredWheel struct {
	mu   sync.Mutex
	ms   *ring
	sec  *ring
	min  *ring
	hour *ring
}

// New builds an empty tiered wheel with the four standard rings.
func New() *TieredWheel {
	return &TieredWheel{
		ms:   newRing(msSlots, msInterval),
		sec:  newRing(secSlots, secInterval),
		min:  newRing(minSlots, minInterval),
		hour: newRing(hourSlots, hourInterval),
	}
}

// Push routes a task into whichever ring its remaining delay belongs to,
// clamping an overdue (negative) delay to zero so it fires on the very
// next harvest rather than wrapping around the ring.
func (w *TieredWheel) Push(a *actor.Actor, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pushLocked(a, delay)
}

func (w *TieredWheel) pushLocked(a *actor.Actor, delay time.Duration) {
	switch {
	case delay > time.Hour:
		w.hour.push(clampOffset(int(delay/time.Hour), hourSlots), a)
	case delay > time.Minute:
		w.min.push(int(delay/time.Minute)%minSlots, a)
	case delay > time.Second:
		w.sec.push(int(delay/time.Second)%secSlots, a)
	default:
		w.ms.push(int(delay/(100*time.Millisecond))%msSlots, a)
	}
}

// Depth reports how many tasks are currently parked across all four
// rings, for the wheel-depth telemetry gauge.
func (w *TieredWheel) Depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, r := range []*ring{w.ms, w.sec, w.min, w.hour} {
		for _, slot := range r.slots {
			total += len(slot)
		}
	}
	return total
}

// clampOffset mirrors the original hour-ring behavior: a task further out
// than the ring can address in one lap is parked in the ring's last slot
// instead of wrapping around to a nearer one and firing too early.
func clampOffset(offset, slots int) int {
	if offset >= slots {
		return slots - 1
	}
	return offset % slots
}

// Tick advances every ring by delta, harvests whichever rings completed a
// full ring-local interval, and for each harvested task either fires it,
// reschedules it, cascades it down a ring, or (schedule exhausted) retires
// it and records that in notices. Order firings are dispatched inline
// through the task's actor mailbox; Disorder firings are returned for the
// caller to hand to the execution pool, since the wheel has no pool
// reference of its own contract beyond the Job value it builds.
func (w *TieredWheel) Tick(delta time.Duration, notices *notice.List) []pool.Job {
	var jobs []pool.Job

	for _, r := range []*ring{w.ms, w.sec, w.min, w.hour} {
		if !r.tick(delta) {
			continue
		}
		w.mu.Lock()
		harvested := r.harvest()
		w.mu.Unlock()
		for _, a := range harvested {
			w.settle(a, &jobs, notices)
		}
	}
	return jobs
}

// settle decides a single harvested task's fate: fire-and-reschedule,
// cascade down, or retire.
func (w *TieredWheel) settle(a *actor.Actor, jobs *[]pool.Job, notices *notice.List) {
	target := a.GetTarget()
	if target.IsZero() {
		// Actor already terminated (Paused or Destroyed out from under the
		// wheel); nothing to reschedule.
		return
	}

	remaining := time.Until(target)
	if remaining > fireThreshold {
		w.Push(a, remaining)
		return
	}

	switch a.OrderType() {
	case types.Order:
		a.Fire()
	case types.Disorder:
		*jobs = append(*jobs, pool.Job{TaskID: a.ID(), Run: a.Handler()})
	}

	if !a.TickRepeat() {
		a.Destroy()
		notices.Add(a.ID(), types.Destroyed)
		return
	}

	next, ok := a.NextInstant()
	if !ok {
		log.Debug("cron schedule exhausted", "task_id", a.ID())
		a.Destroy()
		notices.Add(a.ID(), types.Destroyed)
		return
	}
	a.SetTarget(next)
	w.Push(a, time.Until(next))
}

// ring is one tier of the wheel: a fixed set of FIFO slots advanced one
// position every time its interval elapses.
type ring struct {
	slots    [][]*actor.Actor
	pointer  int
	interval time.Duration
	setting  time.Duration
}

func newRing(slotCount int, interval time.Duration) *ring {
	return &ring{
		slots:    make([][]*actor.Actor, slotCount),
		interval: interval,
		setting:  interval,
	}
}

// push appends to the slot at the given offset from the ring's current
// pointer.
func (r *ring) push(offset int, a *actor.Actor) {
	idx := (r.pointer + offset) % len(r.slots)
	r.slots[idx] = append(r.slots[idx], a)
}

// tick counts delta down against the ring's remaining interval, resetting
// and reporting true once it reaches zero - the ring's "one slot per
// interval" rotation.
func (r *ring) tick(delta time.Duration) bool {
	r.interval -= delta
	if r.interval > 0 {
		return false
	}
	r.interval = r.setting
	return true
}

// harvest empties the slot under the current pointer and advances it.
func (r *ring) harvest() []*actor.Actor {
	idx := r.pointer
	tasks := r.slots[idx]
	r.slots[idx] = nil
	r.pointer = (r.pointer + 1) % len(r.slots)
	return tasks
}
