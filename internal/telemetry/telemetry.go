// ============================================================================
// Sundial Telemetry - Prometheus Monitoring
// ============================================================================
//
// Package: internal/telemetry
// File: telemetry.go
// Purpose: Collect and expose scheduler metrics for Prometheus monitoring
//
// Monitoring Philosophy:
//   Based on RED (Rate, Errors, Duration) and USE (Utilization, Saturation,
//   Errors), tailored to a firing pipeline rather than a job queue:
//
//   1. Task Counters - cumulative, monotonically increasing:
//      - tasks_registered_total
//      - tasks_fired_total{order}    (labeled "order" / "disorder")
//      - tasks_destroyed_total
//      - handler_panics_total
//
//   2. Performance Metrics (Histogram):
//      - handler_latency_seconds: wall time spent inside a fired handler
//
//   3. Status Metrics (Gauge) - instantaneous:
//      - tasks_running / tasks_paused
//      - pool_queue_depth: jobs waiting in the execution pool's injector
//
// Prometheus Query Examples:
//
//   # Fires per minute, by order mode
//   rate(sundial_tasks_fired_total[1m])
//
//   # 95th percentile handler latency
//   histogram_quantile(0.95, sundial_handler_latency_seconds_bucket)
//
//   # Panic rate
//   rate(sundial_handler_panics_total[5m])
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. Format: Prometheus text.
//
// ============================================================================

package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects the scheduler's Prometheus metrics.
type Collector struct {
	tasksRegistered prometheus.Counter
	tasksDestroyed  prometheus.Counter
	tasksPausedCt   prometheus.Counter
	tasksFired      *prometheus.CounterVec
	handlerPanics   prometheus.Counter

	handlerLatency prometheus.Histogram

	tasksRunning  prometheus.Gauge
	tasksPaused   prometheus.Gauge
	poolQueueSize prometheus.Gauge
	wheelDepth    prometheus.Gauge
}

// NewCollector builds and registers a Collector against the default
// Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		tasksRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sundial_tasks_registered_total",
			Help: "Total number of tasks registered with the scheduler",
		}),
		tasksDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sundial_tasks_destroyed_total",
			Help: "Total number of tasks destroyed, explicitly or by schedule exhaustion",
		}),
		tasksPausedCt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sundial_tasks_paused_total",
			Help: "Total number of Pause operations that succeeded",
		}),
		tasksFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sundial_tasks_fired_total",
			Help: "Total number of handler firings, labeled by order mode",
		}, []string{"order"}),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sundial_handler_panics_total",
			Help: "Total number of handler invocations that panicked and were recovered",
		}),
		handlerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sundial_handler_latency_seconds",
			Help:    "Wall-clock time spent executing a fired handler",
			Buckets: prometheus.DefBuckets,
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sundial_tasks_running",
			Help: "Current number of running (not paused) tasks",
		}),
		tasksPaused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sundial_tasks_paused",
			Help: "Current number of paused tasks",
		}),
		poolQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sundial_pool_queue_depth",
			Help: "Current number of jobs waiting in the execution pool's shared injector",
		}),
		wheelDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sundial_wheel_depth",
			Help: "Current number of tasks parked across all wheel rings",
		}),
	}

	prometheus.MustRegister(
		c.tasksRegistered,
		c.tasksDestroyed,
		c.tasksPausedCt,
		c.tasksFired,
		c.handlerPanics,
		c.handlerLatency,
		c.tasksRunning,
		c.tasksPaused,
		c.poolQueueSize,
		c.wheelDepth,
	)

	return c
}

// RecordRegistered records a newly registered task.
func (c *Collector) RecordRegistered() {
	c.tasksRegistered.Inc()
}

// RecordDestroyed records a task leaving the scheduler for good.
func (c *Collector) RecordDestroyed() {
	c.tasksDestroyed.Inc()
}

// RecordPaused records a successful Pause operation.
func (c *Collector) RecordPaused() {
	c.tasksPausedCt.Inc()
}

// RecordFired records one handler firing and its wall-clock duration.
func (c *Collector) RecordFired(order string, latencySeconds float64) {
	c.tasksFired.WithLabelValues(order).Inc()
	c.handlerLatency.Observe(latencySeconds)
}

// RecordPanic records a recovered handler panic.
func (c *Collector) RecordPanic() {
	c.handlerPanics.Inc()
}

// UpdateTaskCounts sets the running/paused task gauges.
func (c *Collector) UpdateTaskCounts(running, paused int) {
	c.tasksRunning.Set(float64(running))
	c.tasksPaused.Set(float64(paused))
}

// UpdatePoolQueueDepth sets the execution pool's backlog gauge.
func (c *Collector) UpdatePoolQueueDepth(depth int) {
	c.poolQueueSize.Set(float64(depth))
}

// UpdateWheelDepth sets the wheel's total parked-task gauge.
func (c *Collector) UpdateWheelDepth(depth int) {
	c.wheelDepth.Set(float64(depth))
}

// StartServer starts the Prometheus metrics HTTP server on the given port.
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
