// Package handlers is a small built-in registry of named task handlers the
// CLI's job file can reference by name, since a YAML document cannot carry
// an executable closure. Embedders linking the scheduler directly pass
// their own Handler values to Scheduler.PushTask and never touch this
// package.
package handlers

import (
	"context"
	"log/slog"

	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

var log = slog.Default().With("component", "handlers")

var registry = map[string]types.Handler{
	"log":   logHandler,
	"noop":  noopHandler,
	"panic": panicHandler,
}

// Lookup returns the named built-in handler, if one exists.
func Lookup(name string) (types.Handler, bool) {
	h, ok := registry[name]
	return h, ok
}

func logHandler(context.Context) {
	log.Info("job fired")
}

func noopHandler(context.Context) {}

// panicHandler exists to exercise panic-recovery paths end to end (actor
// invoke, pool worker exec, telemetry's instrumented wrapper) when wired
// into a real job file rather than only a unit test.
func panicHandler(context.Context) {
	panic("handlers: deliberate panic handler fired")
}
