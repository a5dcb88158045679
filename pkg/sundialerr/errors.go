// Package sundialerr defines the scheduler's sentinel error taxonomy.
// Every per-task failure is isolated to that task; none of these errors
// ever propagate into the reactor, the wheels or the pool.
package sundialerr

import "errors"

var (
	// ErrCronParse means the cron expression was rejected by the parser.
	ErrCronParse = errors.New("sundial: invalid cron expression")

	// ErrComputeFailure means the cron expression parsed but yields no
	// upcoming firing instant (an exhausted or empty schedule).
	ErrComputeFailure = errors.New("sundial: cron schedule has no upcoming instant")

	// ErrIDExhausted means the task id allocator has reached its ceiling.
	ErrIDExhausted = errors.New("sundial: task id space exhausted")

	// ErrUnknownTask means a control operation named an id that does not
	// exist, or that belongs to an already-destroyed task.
	ErrUnknownTask = errors.New("sundial: unknown task id")
)
