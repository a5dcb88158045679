// ============================================================================
// Sundial Reactor - Core Driver Loop
// ============================================================================
//
// Package: internal/reactor
// File: reactor.go
// Function: The single goroutine that drives the whole scheduler forward:
//           sleep one TICK, measure how much wall-clock time actually
//           elapsed, advance the wheel by that delta, hand any fired
//           Disorder handlers to the execution pool, and prune tasks the
//           wheel retired on natural schedule exhaustion.
//
// Design Pattern:
//   One ticking loop: select on a stop channel and a ticker, do one unit
//   of work per tick, signal completion through a WaitGroup on shutdown.
//
// Why measure elapsed time instead of trusting the ticker period:
//   A busy machine can deliver a ticker tick late. The reactor measures
//   the actual gap between ticks and feeds that to the wheel, so a
//   delayed tick degrades to coarser scheduling precision under load
//   rather than silently losing time.
//
// ============================================================================

package reactor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/manager"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/internal/telemetry"
	"github.com/cherish-ltt/lynn-sundial/internal/wheel"
)

var log = slog.Default().With("component", "reactor")

// Tick is the reactor's nominal loop period. The wheel's own ring
// intervals (100ms / 1s / 1min / 1h) are all multiples of it.
const Tick = 25 * time.Millisecond

// Reactor owns the wheel and pool and drives them together. The zero
// value is not usable; construct with New.
type Reactor struct {
	wheel     *wheel.TieredWheel
	pool      *pool.Pool
	manager   *manager.Manager
	notices   *notice.List
	collector *telemetry.Collector

	tick time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Reactor wiring the given wheel, pool and manager together
// through a shared notice list. The loop period defaults to Tick; override
// it with SetTick before Start.
func New(w *wheel.TieredWheel, p *pool.Pool, m *manager.Manager, notices *notice.List) *Reactor {
	return &Reactor{
		wheel:   w,
		pool:    p,
		manager: m,
		notices: notices,
		tick:    Tick,
		stopCh:  make(chan struct{}),
	}
}

// SetTick overrides the driver loop's period (default Tick). Call before
// Start; a zero or negative duration is ignored.
func (r *Reactor) SetTick(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.tick = d
	}
}

// SetCollector attaches a telemetry collector; each harvest cycle
// subsequently reports wheel depth, pool queue depth and running/paused
// task counts. Call before Start.
func (r *Reactor) SetCollector(c *telemetry.Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collector = c
}

// Start launches the pool and the driver loop. Calling Start twice is a
// no-op.
func (r *Reactor) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.pool.Start()
	r.wg.Add(1)
	go r.run()
}

// Stop signals the driver loop to exit, then stops the pool once the loop
// has returned so no new jobs are submitted after the pool starts
// draining.
func (r *Reactor) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	r.pool.Stop()
}

func (r *Reactor) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			r.harvest(delta)
		}
	}
}

// harvest runs one reactor cycle: advance the wheel, submit every
// Disorder job it returns to the pool, and prune tasks the wheel retired.
func (r *Reactor) harvest(delta time.Duration) {
	jobs := r.wheel.Tick(delta, r.notices)
	for _, job := range jobs {
		if err := r.pool.Submit(job); err != nil {
			log.Warn("dropped fired job, pool unavailable", "task_id", job.TaskID, "error", err)
		}
	}
	r.manager.Reap(r.notices)

	if r.collector != nil {
		r.collector.UpdateWheelDepth(r.wheel.Depth())
		r.collector.UpdatePoolQueueDepth(r.pool.QueueDepth())
		running, paused := r.manager.Count()
		r.collector.UpdateTaskCounts(running, paused)
	}
}

// RunUntil blocks the calling goroutine until ctx is done, then stops the
// reactor. Convenient for cmd/ entrypoints that already hold a lifecycle
// context.
func (r *Reactor) RunUntil(ctx context.Context) {
	r.Start()
	<-ctx.Done()
	r.Stop()
}
