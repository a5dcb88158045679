// ============================================================================
// Sundial Task Manager - Control Plane
// ============================================================================
//
// Package: internal/manager
// File: manager.go
// Function: Owns task identity and the live/parked split: every registered
//           task is either a running actor parked in the wheel, or a
//           captured Snapshot sitting out of rotation because it was
//           paused. Register, Pause, Resume, Destroy and UpdateCron all
//           live here; the wheel and pool never look a task up by id,
//           they hold actor pointers and jobs.
//
// Design Philosophy (hybrid map + index, same shape the job manager uses):
//   1. actors map   - live tasks, Single Source of Truth while running
//   2. parked map   - paused tasks, captured Snapshot instead of a goroutine
//   3. schedules map - the parsed cron schedule for each task, kept
//      alongside both of the above since neither an Actor nor a Snapshot
//      carries it (rebuilding it from a raw expression on every Resume
//      would mean storing the original string somewhere anyway)
//
// State Transitions:
//   Register  -> actors[id]             (live, pushed into the wheel)
//   Pause     -> actors[id] -> parked[id]
//   Resume    -> parked[id] -> actors[id] (fresh actor, wheel push)
//   Destroy   -> actors[id] or parked[id] -> gone
//   (wheel)   -> actors[id] -> gone, reported via notice.List on natural
//               schedule exhaustion - Reap prunes it from here
//
// Concurrency:
//   - sync.RWMutex protects every map; RLock for reads, Lock for writes
//   - id allocation is part of the same locked section as Register, so two
//     concurrent Register calls never hand out the same id
//
// ============================================================================

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/actor"
	"github.com/cherish-ltt/lynn-sundial/internal/cronsched"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/telemetry"
	"github.com/cherish-ltt/lynn-sundial/internal/wheel"
	"github.com/cherish-ltt/lynn-sundial/pkg/sundialerr"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

// Manager is the scheduler's control plane. The zero value is not usable;
// construct with New.
type Manager struct {
	wheel     *wheel.TieredWheel
	collector *telemetry.Collector

	mu        sync.RWMutex
	nextID    uint64
	actors    map[types.TaskID]*actor.Actor
	parked    map[types.TaskID]types.Snapshot
	schedules map[types.TaskID]*cronsched.Schedule
}

// New builds a Manager that registers tasks into the given wheel.
func New(w *wheel.TieredWheel) *Manager {
	return &Manager{
		wheel:     w,
		actors:    make(map[types.TaskID]*actor.Actor),
		parked:    make(map[types.TaskID]types.Snapshot),
		schedules: make(map[types.TaskID]*cronsched.Schedule),
	}
}

// SetCollector attaches a telemetry collector. Every registered task's
// handler is subsequently wrapped to report fire counts, latency and
// recovered panics; registration/pause/destroy counters fire immediately.
// Safe to call at most once, before the first Register.
func (m *Manager) SetCollector(c *telemetry.Collector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collector = c
}

// Register parses a cron expression, computes its first firing instant,
// allocates a task id, starts the task's actor and pushes it into the
// wheel. Returns ErrCronParse or ErrComputeFailure for a bad or exhausted
// expression, ErrIDExhausted if the id space is spent.
func (m *Manager) Register(cronExpr string, handler types.Handler, repeat types.RepeatMode, order types.OrderType) (types.TaskID, error) {
	schedule, err := cronsched.Parse(cronExpr)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	target, ok := schedule.Next(now)
	if !ok {
		return 0, sundialerr.ErrComputeFailure
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.allocateLocked()
	if err != nil {
		return 0, err
	}

	if m.collector != nil {
		handler = instrument(m.collector, order, handler)
	}
	a := actor.New(id, schedule, handler, repeat, target, order)
	m.actors[id] = a
	m.schedules[id] = schedule
	m.wheel.Push(a, time.Until(target))
	if m.collector != nil {
		m.collector.RecordRegistered()
	}
	return id, nil
}

// instrument wraps a user handler so every invocation reports its latency
// and order label, and a recovered panic is counted before being
// re-raised for the actor's or pool worker's own recover to log.
func instrument(c *telemetry.Collector, order types.OrderType, h types.Handler) types.Handler {
	label := order.String()
	return func(ctx context.Context) {
		start := time.Now()
		defer func() {
			c.RecordFired(label, time.Since(start).Seconds())
			if r := recover(); r != nil {
				c.RecordPanic()
				panic(r)
			}
		}()
		h(ctx)
	}
}

// allocateLocked hands out the next dense id. Caller must hold m.mu.
func (m *Manager) allocateLocked() (types.TaskID, error) {
	if m.nextID == ^uint64(0) {
		return 0, sundialerr.ErrIDExhausted
	}
	m.nextID++
	return types.TaskID(m.nextID), nil
}

// Pause captures a live task's state and takes it out of rotation. The
// actor goroutine terminates as part of the capture.
func (m *Manager) Pause(id types.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actors[id]
	if !ok {
		return sundialerr.ErrUnknownTask
	}
	snap, ok := a.Pause()
	if !ok {
		// Actor raced us to termination (e.g. just destroyed itself on
		// schedule exhaustion); treat as already gone.
		delete(m.actors, id)
		return sundialerr.ErrUnknownTask
	}
	delete(m.actors, id)
	m.parked[id] = snap
	if m.collector != nil {
		m.collector.RecordPaused()
	}
	return nil
}

// Resume restarts a paused task's actor from its captured snapshot and
// pushes it back into the wheel. The captured TargetInstant is only good
// for a pause that didn't cross it; for any pause lasting past that
// instant, resuming against the stale value would fire immediately as a
// spurious catch-up for a firing the task was paused through. So a target
// that has already elapsed is discarded and recomputed against the cron
// schedule's next instant after now, same as a fresh Register would.
func (m *Manager) Resume(id types.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.parked[id]
	if !ok {
		return sundialerr.ErrUnknownTask
	}
	schedule, ok := m.schedules[id]
	if !ok {
		return sundialerr.ErrUnknownTask
	}

	now := time.Now()
	if !snap.TargetInstant.After(now) {
		target, ok := schedule.Next(now)
		if !ok {
			delete(m.parked, id)
			delete(m.schedules, id)
			return sundialerr.ErrComputeFailure
		}
		snap.TargetInstant = target
	}

	a := actor.Resume(snap, schedule)
	delete(m.parked, id)
	m.actors[id] = a
	m.wheel.Push(a, time.Until(snap.TargetInstant))
	return nil
}

// Destroy permanently removes a task, live or paused.
func (m *Manager) Destroy(id types.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.actors[id]; ok {
		a.Destroy()
		delete(m.actors, id)
		delete(m.schedules, id)
		if m.collector != nil {
			m.collector.RecordDestroyed()
		}
		return nil
	}
	if _, ok := m.parked[id]; ok {
		delete(m.parked, id)
		delete(m.schedules, id)
		if m.collector != nil {
			m.collector.RecordDestroyed()
		}
		return nil
	}
	return sundialerr.ErrUnknownTask
}

// UpdateCron replaces a task's cron schedule. The running actor updates
// its schedule and target instant in place; its existing wheel entry is
// left where it is until the wheel naturally harvests it, at which point
// settle() recomputes the remaining time from the actor's (now current)
// target and cascades or fires accordingly - a live task's position in
// the wheel is never edited directly, since ring slots are not indexed by
// task id. A paused task simply picks up the new schedule whenever it is
// next Resumed.
func (m *Manager) UpdateCron(id types.TaskID, cronExpr string) error {
	schedule, err := cronsched.Parse(cronExpr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.actors[id]; ok {
		if !a.UpdateCron(schedule) {
			delete(m.actors, id)
			return sundialerr.ErrUnknownTask
		}
		m.schedules[id] = schedule
		return nil
	}
	if _, ok := m.parked[id]; ok {
		m.schedules[id] = schedule
		return nil
	}
	return sundialerr.ErrUnknownTask
}

// Status reports a task's current lifecycle state.
func (m *Manager) Status(id types.TaskID) (types.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.actors[id]; ok {
		return types.Running, nil
	}
	if _, ok := m.parked[id]; ok {
		return types.Paused, nil
	}
	return 0, sundialerr.ErrUnknownTask
}

// Count reports how many tasks are currently live (running) and parked
// (paused), for telemetry gauges.
func (m *Manager) Count() (running, paused int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actors), len(m.parked)
}

// Reap drains the wheel's notice list and prunes any task it reports as
// destroyed (natural schedule exhaustion), so actors map does not
// accumulate dead entries.
func (m *Manager) Reap(notices *notice.List) {
	entries := notices.Drain()
	if len(entries) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if e.Status != types.Destroyed {
			continue
		}
		delete(m.actors, e.ID)
		delete(m.schedules, e.ID)
		if m.collector != nil {
			m.collector.RecordDestroyed()
		}
	}
}
