// Package metrics exposes Prometheus instrumentation for the motion core.
//
// The heartbeat gauges answer the one question that matters in the field:
// is the 100Hz command stream actually running at 100Hz. The task counters
// follow the RED convention used by the rest of our fleet tooling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus instruments for the motion core.
type Collector struct {
	heartbeatTicks     prometheus.Counter
	heartbeatLagResets prometheus.Counter
	heartbeatFrequency prometheus.Gauge

	tasksEnqueued  prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	tasksCancelled prometheus.Counter
	taskLatency    prometheus.Histogram

	emergencyStops prometheus.Counter
	sdkErrors      prometheus.Counter
}

// NewCollector creates and registers the motion-core collectors.
func NewCollector() *Collector {
	c := &Collector{
		heartbeatTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_heartbeat_ticks_total",
			Help: "Total heartbeat loop iterations",
		}),
		heartbeatLagResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_heartbeat_lag_resets_total",
			Help: "Times the heartbeat anchor was reset after lagging more than 100ms",
		}),
		heartbeatFrequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "g1_heartbeat_frequency_hz",
			Help: "Measured heartbeat frequency over the last report window",
		}),
		tasksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_tasks_enqueued_total",
			Help: "Total motion tasks enqueued",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_tasks_completed_total",
			Help: "Total motion tasks completed successfully",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_tasks_failed_total",
			Help: "Total motion tasks failed",
		}),
		tasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_tasks_cancelled_total",
			Help: "Total motion tasks cancelled by preemption",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "g1_task_latency_seconds",
			Help:    "Time from task creation to terminal state",
			Buckets: prometheus.DefBuckets,
		}),
		emergencyStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_emergency_stops_total",
			Help: "Total emergency stops triggered (any source)",
		}),
		sdkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "g1_sdk_errors_total",
			Help: "Total failed SDK commands (move/damp)",
		}),
	}

	prometheus.MustRegister(
		c.heartbeatTicks,
		c.heartbeatLagResets,
		c.heartbeatFrequency,
		c.tasksEnqueued,
		c.tasksCompleted,
		c.tasksFailed,
		c.tasksCancelled,
		c.taskLatency,
		c.emergencyStops,
		c.sdkErrors,
	)

	return c
}

// RecordTick records one heartbeat iteration.
func (c *Collector) RecordTick() {
	if c == nil {
		return
	}
	c.heartbeatTicks.Inc()
}

// RecordLagReset records a heartbeat anchor reset.
func (c *Collector) RecordLagReset() {
	if c == nil {
		return
	}
	c.heartbeatLagResets.Inc()
}

// SetFrequency publishes the measured heartbeat frequency.
func (c *Collector) SetFrequency(hz float64) {
	if c == nil {
		return
	}
	c.heartbeatFrequency.Set(hz)
}

// RecordEnqueue records a task added to the queue.
func (c *Collector) RecordEnqueue() {
	if c == nil {
		return
	}
	c.tasksEnqueued.Inc()
}

// RecordTaskDone records a task reaching a terminal state.
func (c *Collector) RecordTaskDone(status string, latencySeconds float64) {
	if c == nil {
		return
	}
	switch status {
	case "completed":
		c.tasksCompleted.Inc()
	case "failed":
		c.tasksFailed.Inc()
	case "cancelled":
		c.tasksCancelled.Inc()
	}
	if latencySeconds >= 0 {
		c.taskLatency.Observe(latencySeconds)
	}
}

// RecordEmergencyStop records an emergency stop.
func (c *Collector) RecordEmergencyStop() {
	if c == nil {
		return
	}
	c.emergencyStops.Inc()
}

// RecordSDKError records a failed SDK command.
func (c *Collector) RecordSDKError() {
	if c == nil {
		return
	}
	c.sdkErrors.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on the given address. Blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
