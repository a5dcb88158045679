// ============================================================================
// Sundial Work-Stealing Pool - Disorder Task Executor
// ============================================================================
//
// Package: internal/pool
// File: pool.go
// Function: Fixed-size pool of worker goroutines executing fired task
//           handlers. Disorder firings are posted here directly by the
//           reactor without going through a task's actor, so one task can
//           have many handler executions in flight at once.
//
// Design Pattern:
//   Work-stealing: each worker keeps a private LIFO deque fed by stealing
//   from a shared injector queue, falling back to stealing from a sibling
//   worker's deque when both are empty. This keeps a worker busy on cache-hot
//   work from its own deque first, and only reaches across goroutines when
//   it has run dry - the same tradeoff Go's own runtime scheduler makes for
//   goroutines.
//
// Steal order per worker, each tried in turn until one yields a job:
//   1. Pop from its own deque (LIFO - most recently pushed first).
//   2. Batch-steal a chunk from the shared injector into its own deque.
//   3. Steal half of a sibling's deque, scanning siblings starting after self.
//   4. Sleep one TICK and retry from the top.
//
// Lifecycle mirrors a conventional worker pool:
//   1. New(size)   - build the pool, injector and per-worker deques
//   2. Start()     - launch size worker goroutines
//   3. Submit(job) - hand a job to the injector queue
//   4. Stop()      - signal shutdown, wait for in-flight jobs to finish
//
// Error Handling:
//   - ErrPoolNotStarted: Submit before Start
//   - ErrPoolClosed: Submit after Stop
//   - a job's handler panic is recovered and logged; it never kills the
//     worker goroutine or the pool.
//
// ============================================================================

package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

var log = slog.Default().With("component", "pool")

// DefaultSize is the worker count used when a caller does not override it.
const DefaultSize = 12

// tick is the idle-retry sleep a worker takes when it found no work
// anywhere: its own deque, the injector, and every sibling were all empty.
const tick = 25 * time.Millisecond

// stealChunk is how many jobs a worker pulls from the injector at once when
// batch-stealing, so it doesn't have to go back to the shared queue (and
// its lock) for every single job.
const stealChunk = 4

var (
	// ErrPoolNotStarted is returned by Submit before Start has run.
	ErrPoolNotStarted = errors.New("pool: not started")
	// ErrPoolClosed is returned by Submit after Stop has run.
	ErrPoolClosed = errors.New("pool: closed")
)

// Job is one handler execution to run on the pool.
type Job struct {
	TaskID types.TaskID
	Run    types.Handler
}

// Pool is a fixed-size work-stealing executor. The zero value is not
// usable; construct with New.
type Pool struct {
	size     int
	workers  []*worker
	injector *injector

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Pool with the given worker count. It does not start any
// goroutines until Start is called.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{
		size:     size,
		injector: newInjector(),
		stopCh:   make(chan struct{}),
	}
	p.workers = make([]*worker, size)
	for i := range p.workers {
		p.workers[i] = &worker{id: i, pool: p}
	}
	return p
}

// Start launches one goroutine per worker. Calling Start twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(p.stopCh)
		}(w)
	}
}

// Submit hands a job to the pool's shared injector queue. It never blocks
// on a worker being free; the injector grows to absorb bursts.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.mu.Unlock()

	p.injector.push(job)
	return nil
}

// Stop signals every worker to exit once it has drained its own queue and
// waits for all worker goroutines to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
}

// QueueDepth reports the number of jobs currently waiting in the shared
// injector queue, for telemetry gauges.
func (p *Pool) QueueDepth() int {
	return p.injector.len()
}

// injector is the shared, mutex-guarded FIFO queue workers drain from when
// their own deque runs dry. A plain slice is sufficient: the ecosystem has
// no lock-free MPMC queue among this module's dependencies, and a mutex
// around a slice is the idiomatic Go fallback for a shared work queue of
// this size (job bursts, not a hot per-nanosecond path).
type injector struct {
	mu    sync.Mutex
	items []Job
}

func newInjector() *injector {
	return &injector{items: make([]Job, 0, 64)}
}

func (inj *injector) push(j Job) {
	inj.mu.Lock()
	inj.items = append(inj.items, j)
	inj.mu.Unlock()
}

// stealBatch removes up to n jobs from the front of the queue (oldest
// first) for a worker to adopt into its own deque.
func (inj *injector) stealBatch(n int) []Job {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	if len(inj.items) == 0 {
		return nil
	}
	if n > len(inj.items) {
		n = len(inj.items)
	}
	batch := make([]Job, n)
	copy(batch, inj.items[:n])
	inj.items = inj.items[n:]
	return batch
}

func (inj *injector) len() int {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return len(inj.items)
}

// worker owns one LIFO deque and the goroutine that drains it.
type worker struct {
	id   int
	pool *Pool

	mu    sync.Mutex
	deque []Job
}

// pushLocal appends to the back of the deque - the next popLocal call
// takes it back off immediately (LIFO), favoring cache-hot, just-stolen
// work over older entries.
func (w *worker) pushLocal(jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	w.mu.Lock()
	w.deque = append(w.deque, jobs...)
	w.mu.Unlock()
}

func (w *worker) popLocal() (Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.deque)
	if n == 0 {
		return Job{}, false
	}
	j := w.deque[n-1]
	w.deque = w.deque[:n-1]
	return j, true
}

// stealHalf removes up to half of this worker's deque from the front
// (oldest first, leaving this worker's own recently-pushed hot entries at
// the back) for a sibling to adopt. A deque with fewer than two entries
// yields nothing.
func (w *worker) stealHalf() []Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.deque)
	if n < 2 {
		return nil
	}
	half := n / 2
	stolen := make([]Job, half)
	copy(stolen, w.deque[:half])
	w.deque = w.deque[half:]
	return stolen
}

// run is the worker's main loop: try its own deque, then the injector,
// then siblings, then sleep a tick and start over. Exits once stopCh is
// closed and no more work is found anywhere.
func (w *worker) run(stopCh <-chan struct{}) {
	siblings := w.pool.workers
	for {
		if job, ok := w.popLocal(); ok {
			w.exec(job)
			continue
		}
		if batch := w.pool.injector.stealBatch(stealChunk); batch != nil {
			w.pushLocal(batch)
			continue
		}
		if job, ok := w.stealFromSiblings(siblings); ok {
			w.exec(job)
			continue
		}
		select {
		case <-stopCh:
			if w.drain() {
				continue
			}
			return
		case <-time.After(tick):
		}
	}
}

// drain reports whether this worker still has local work after being
// asked to stop, so Stop() does not strand queued jobs mid-shutdown.
func (w *worker) drain() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.deque) > 0
}

func (w *worker) stealFromSiblings(siblings []*worker) (Job, bool) {
	n := len(siblings)
	for i := 1; i < n; i++ {
		victim := siblings[(w.id+i)%n]
		if victim == w {
			continue
		}
		if stolen := victim.stealHalf(); stolen != nil {
			w.pushLocal(stolen)
			return w.popLocal()
		}
	}
	return Job{}, false
}

// exec runs a job's handler, recovering a panic so one bad handler never
// takes down a worker goroutine.
func (w *worker) exec(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("handler panic recovered", "task_id", job.TaskID, "worker", w.id, "recover", r)
		}
	}()
	job.Run(context.Background())
}
