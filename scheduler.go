// ============================================================================
// Sundial Scheduler - Embedded Library Facade
// ============================================================================
//
// File: scheduler.go
// Function: The package's single public entry point. Wires the task
//           manager, tiered wheel, work-stealing pool, notice list and
//           reactor together behind a small task-lifecycle API, the way a
//           caller embeds this scheduler into a larger program.
//
// ============================================================================

package sundial

import (
	"context"
	"log/slog"

	"github.com/cherish-ltt/lynn-sundial/internal/manager"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/internal/reactor"
	"github.com/cherish-ltt/lynn-sundial/internal/telemetry"
	"github.com/cherish-ltt/lynn-sundial/internal/wheel"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

var metricsLog = slog.Default().With("component", "sundial")

// Re-exported so callers never need to import internal/* or pkg/types
// directly for everyday use.
type (
	// Handler is the async unit of work a task fires.
	Handler = types.Handler
	// RepeatMode selects how many times a task's schedule continues to fire.
	RepeatMode = types.RepeatMode
	// OrderType controls whether successive firings of a task may overlap.
	OrderType = types.OrderType
	// TaskID uniquely identifies a registered task.
	TaskID = types.TaskID
	// Status is a task's lifecycle state.
	Status = types.Status
)

// Repeat mode and order-type constructors/constants, re-exported for
// convenience.
var (
	Once    = types.Once
	Forever = types.Forever
	Times   = types.Times
)

const (
	Order    = types.Order
	Disorder = types.Disorder
)

// Scheduler is the embedded-library facade: a cron-driven task dispatcher
// with a tiered time wheel, a work-stealing pool for Disorder tasks, and
// one actor goroutine per registered task. The zero value is not usable;
// construct with New.
type Scheduler struct {
	manager   *manager.Manager
	wheel     *wheel.TieredWheel
	pool      *pool.Pool
	reactor   *reactor.Reactor
	notices   *notice.List
	collector *telemetry.Collector
}

// New builds a Scheduler from cfg and starts its reactor and pool
// immediately; tasks registered afterward begin firing on their next
// computed instant.
func New(cfg Config) *Scheduler {
	w := wheel.New()
	p := pool.New(cfg.PoolSize)
	n := notice.New()
	m := manager.New(w)
	r := reactor.New(w, p, m, n)
	r.SetTick(cfg.Tick)

	s := &Scheduler{
		manager: m,
		wheel:   w,
		pool:    p,
		reactor: r,
		notices: n,
	}
	r.Start()
	return s
}

// EnableMetrics attaches a Prometheus collector to the scheduler's manager
// and reactor, and starts serving /metrics on port in the background. Call
// once, before registering tasks whose fire counts and latency you want
// recorded.
func (s *Scheduler) EnableMetrics(port int) {
	s.collector = telemetry.NewCollector()
	s.manager.SetCollector(s.collector)
	s.reactor.SetCollector(s.collector)
	go func() {
		if err := telemetry.StartServer(port); err != nil {
			metricsLog.Warn("metrics server stopped", "error", err)
		}
	}()
}

// PushTask is an alias for PushOrderTask: registers a cron task whose
// successive firings are serialized (at most one execution in flight).
func (s *Scheduler) PushTask(cron string, handler Handler, repeat RepeatMode) (TaskID, error) {
	return s.PushOrderTask(cron, handler, repeat)
}

// PushOrderTask registers a task whose firings route through its actor
// mailbox, guaranteeing at most one in-flight execution at a time.
func (s *Scheduler) PushOrderTask(cron string, handler Handler, repeat RepeatMode) (TaskID, error) {
	return s.manager.Register(cron, handler, repeat, types.Order)
}

// PushDisorderTask registers a task whose firings bypass the actor mailbox
// and post straight to the work-stealing pool, allowing overlapping
// concurrent executions of the same task.
func (s *Scheduler) PushDisorderTask(cron string, handler Handler, repeat RepeatMode) (TaskID, error) {
	return s.manager.Register(cron, handler, repeat, types.Disorder)
}

// PauseTask takes a live task out of rotation, preserving its schedule and
// repeat state for a later RestartTask. Reports false if id is unknown.
func (s *Scheduler) PauseTask(id TaskID) bool {
	return s.manager.Pause(id) == nil
}

// RestartTask resumes a previously paused task from its captured state.
// Reports false if id is unknown or was never paused.
func (s *Scheduler) RestartTask(id TaskID) bool {
	return s.manager.Resume(id) == nil
}

// DestroyTask permanently removes a task, live or paused. Reports false if
// id is unknown.
func (s *Scheduler) DestroyTask(id TaskID) bool {
	return s.manager.Destroy(id) == nil
}

// UpdateCron replaces a task's cron schedule in place.
func (s *Scheduler) UpdateCron(id TaskID, cron string) error {
	return s.manager.UpdateCron(id, cron)
}

// Status reports a task's current lifecycle state.
func (s *Scheduler) Status(id TaskID) (Status, error) {
	return s.manager.Status(id)
}

// Count reports how many tasks are currently running and paused.
func (s *Scheduler) Count() (running, paused int) {
	return s.manager.Count()
}

// QueueDepth reports how many Disorder jobs are currently waiting in the
// work-stealing pool's shared injector queue.
func (s *Scheduler) QueueDepth() int {
	return s.pool.QueueDepth()
}

// WaitAll blocks until ctx is cancelled, then stops the reactor and pool.
// Embedders call this to keep the host process alive while the scheduler
// runs in the background.
func (s *Scheduler) WaitAll(ctx context.Context) {
	<-ctx.Done()
	s.reactor.Stop()
}
