// ============================================================================
// Sundial Task Actor - Per-Task State Owner
// ============================================================================
//
// Package: internal/actor
// File: actor.go
// Function: One long-lived goroutine per registered task, owning the task's
//           mutable state (cron schedule, target instant, remaining repeat
//           count, handler) and serializing every mutation through a
//           bounded command channel.
//
// Design Pattern:
//   Actor model: a single goroutine is the only writer of its own state.
//   Callers never touch actor fields directly; they send a command and,
//   where a reply is needed, read it back off a per-call reply channel.
//
// Why Order is race-free:
//   Fire just enqueues a cmdRunHandle command. Because the actor goroutine
//   drains cmdCh one command at a time, the handler from one Fire always
//   finishes running before the next queued cmdRunHandle starts - two
//   invocations for the same task can never overlap. The caller does not
//   wait for the handler; only the mailbox send can block, as backpressure.
//
// Command set:
//   RunHandle, GetNextInstant, TickRepeat, GetTarget/SetTarget, UpdateCron,
//   Pause, Destroy.
//
// ============================================================================

package actor

import (
	"context"
	"log/slog"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/cronsched"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

var log = slog.Default().With("component", "actor")

// mailboxCapacity is the bounded command channel depth. Small by design:
// once it fills, producers (the dispatcher) backpressure on send.
const mailboxCapacity = 8

// commands

type cmdRunHandle struct{}

type cmdGetNextInstant struct{ reply chan nextInstantReply }

type nextInstantReply struct {
	at time.Time
	ok bool
}

type cmdTickRepeat struct{ reply chan bool }

type cmdGetTarget struct{ reply chan time.Time }

type cmdSetTarget struct{ at time.Time }

type cmdUpdateCron struct{ schedule *cronsched.Schedule }

type cmdPause struct{ reply chan types.Snapshot }

type cmdDestroy struct{}

// Actor is the handle callers hold; the goroutine and its state live behind
// cmdCh. A zero Actor is not usable - construct with New or Resume.
type Actor struct {
	id     types.TaskID
	cmdCh  chan any
	done   chan struct{}
	order  types.OrderType
	handle types.Handler
}

// New starts a fresh actor goroutine for a just-registered task.
func New(id types.TaskID, schedule *cronsched.Schedule, handler types.Handler, repeat types.RepeatMode, target time.Time, order types.OrderType) *Actor {
	a := &Actor{
		id:     id,
		cmdCh:  make(chan any, mailboxCapacity),
		done:   make(chan struct{}),
		order:  order,
		handle: handler,
	}
	state := &state{
		schedule: schedule,
		handler:  handler,
		repeat:   repeat,
		target:   target,
	}
	go a.run(state)
	return a
}

// Resume restarts an actor goroutine from a snapshot captured by Pause,
// restoring the preserved cron schedule, handler, repeat state and target
// instant. The new Actor has a fresh mailbox and done channel.
func Resume(snap types.Snapshot, schedule *cronsched.Schedule) *Actor {
	a := &Actor{
		id:     snap.ID,
		cmdCh:  make(chan any, mailboxCapacity),
		done:   make(chan struct{}),
		order:  snap.OrderType,
		handle: snap.Handler,
	}
	repeat := snap.Repeat
	if repeat.Kind == types.RepeatTimes {
		repeat.Times = snap.RemainingTimes
	}
	state := &state{
		schedule: schedule,
		handler:  snap.Handler,
		repeat:   repeat,
		target:   snap.TargetInstant,
	}
	go a.run(state)
	return a
}

// ID returns the task id this actor serves.
func (a *Actor) ID() types.TaskID { return a.id }

// OrderType returns the task's ordering mode, fixed at registration.
func (a *Actor) OrderType() types.OrderType { return a.order }

// Handler returns the shared, immutable callback. Safe to call without
// going through the mailbox since it never changes after registration.
func (a *Actor) Handler() types.Handler { return a.handle }

// send delivers a command, or reports failure if the actor has already
// terminated (Pause/Destroy raced us). Never blocks forever.
func (a *Actor) send(cmd any) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.cmdCh <- cmd:
		return true
	case <-a.done:
		return false
	}
}

// Fire enqueues one handler invocation and returns immediately; it does
// not wait for the handler to complete. Because the command goes through
// the same mailbox as everything else and the actor processes one command
// at a time, back-to-back Fire calls for one task are never concurrent -
// that is the entire mechanism behind Order. If the mailbox (capacity 8)
// is full, this blocks until a slot frees, giving the dispatcher natural
// backpressure. Returns false if the actor has already terminated.
func (a *Actor) Fire() bool {
	return a.send(cmdRunHandle{})
}

// NextInstant reports the next firing instant after now per the task's
// cron schedule, or ok=false if the schedule is exhausted.
func (a *Actor) NextInstant() (time.Time, bool) {
	reply := make(chan nextInstantReply, 1)
	if !a.send(cmdGetNextInstant{reply: reply}) {
		return time.Time{}, false
	}
	select {
	case r := <-reply:
		return r.at, r.ok
	case <-a.done:
		return time.Time{}, false
	}
}

// TickRepeat consumes one unit of repeat budget and reports whether
// another firing should occur.
func (a *Actor) TickRepeat() bool {
	reply := make(chan bool, 1)
	if !a.send(cmdTickRepeat{reply: reply}) {
		return false
	}
	select {
	case r := <-reply:
		return r
	case <-a.done:
		return false
	}
}

// GetTarget reads the actor's currently recorded target instant.
func (a *Actor) GetTarget() time.Time {
	reply := make(chan time.Time, 1)
	if !a.send(cmdGetTarget{reply: reply}) {
		return time.Time{}
	}
	select {
	case t := <-reply:
		return t
	case <-a.done:
		return time.Time{}
	}
}

// SetTarget writes the actor's target instant (fire-and-forget).
func (a *Actor) SetTarget(at time.Time) {
	a.send(cmdSetTarget{at: at})
}

// UpdateCron replaces the cron schedule and recomputes the target instant.
func (a *Actor) UpdateCron(schedule *cronsched.Schedule) bool {
	return a.send(cmdUpdateCron{schedule: schedule})
}

// Pause captures the actor's state and terminates its loop. The caller is
// responsible for parking the returned snapshot and later calling Resume.
func (a *Actor) Pause() (types.Snapshot, bool) {
	reply := make(chan types.Snapshot, 1)
	if !a.send(cmdPause{reply: reply}) {
		return types.Snapshot{}, false
	}
	select {
	case snap := <-reply:
		return snap, true
	case <-a.done:
		return types.Snapshot{}, false
	}
}

// Destroy terminates the actor loop. Subsequent sends fail silently.
func (a *Actor) Destroy() {
	a.send(cmdDestroy{})
}

// state is the mutable data the actor goroutine exclusively owns.
type state struct {
	schedule *cronsched.Schedule
	handler  types.Handler
	repeat   types.RepeatMode
	target   time.Time
}

func (s *state) tickRepeat() bool {
	switch s.repeat.Kind {
	case types.RepeatOnce:
		return false
	case types.RepeatForever:
		return true
	case types.RepeatTimes:
		s.repeat.Times--
		return s.repeat.Times > 0
	default:
		return false
	}
}

func (a *Actor) run(s *state) {
	defer close(a.done)
	for cmd := range a.cmdCh {
		switch c := cmd.(type) {
		case cmdRunHandle:
			invoke(a.id, s.handler)
		case cmdGetNextInstant:
			at, ok := s.schedule.Next(time.Now())
			c.reply <- nextInstantReply{at: at, ok: ok}
		case cmdTickRepeat:
			c.reply <- s.tickRepeat()
		case cmdGetTarget:
			c.reply <- s.target
		case cmdSetTarget:
			s.target = c.at
		case cmdUpdateCron:
			s.schedule = c.schedule
			if at, ok := s.schedule.Next(time.Now()); ok {
				s.target = at
			}
		case cmdPause:
			c.reply <- types.Snapshot{
				ID:             a.id,
				Handler:        s.handler,
				Repeat:         s.repeat,
				RemainingTimes: s.repeat.Times,
				TargetInstant:  s.target,
				OrderType:      a.order,
			}
			return
		case cmdDestroy:
			return
		}
	}
}

// invoke runs the handler, recovering a panic so it never poisons the
// actor loop or escapes to the reactor/pool.
func invoke(id types.TaskID, h types.Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("handler panic recovered", "task_id", id, "recover", r)
		}
	}()
	h(context.Background())
}
