// Package metrics exposes Prometheus instrumentation for the platform loop
// and the inference pool.
//
// A nil *Metrics is valid and records nothing, so components take one
// optionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agora"

// Metrics holds every collector.
type Metrics struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	recRebuilds    prometheus.Counter

	workerState       *prometheus.GaugeVec
	inferenceRequests *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "actions_total",
			Help:      "Actions dispatched by the platform loop.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "action_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"action"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "queue_depth",
			Help:      "Requests waiting on the platform channel.",
		}),
		recRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recsys",
			Name:      "rebuilds_total",
			Help:      "Recommendation cache rebuilds.",
		}),
		workerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "worker_state",
			Help:      "Current state of each inference worker (1 for the active state).",
		}, []string{"worker", "state"}),
		inferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inference",
			Name:      "requests_total",
			Help:      "Completed inference requests.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.actions,
		m.actionDuration,
		m.queueDepth,
		m.recRebuilds,
		m.workerState,
		m.inferenceRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAction records one dispatched action.
func (m *Metrics) ObserveAction(action string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if success {
		outcome = "success"
	}
	m.actions.WithLabelValues(action, outcome).Inc()
	m.actionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// SetQueueDepth records the platform channel backlog.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// RecRebuilt counts a cache rebuild.
func (m *Metrics) RecRebuilt() {
	if m == nil {
		return
	}
	m.recRebuilds.Inc()
}

// WorkerStates lists every state label SetWorkerState may receive.
var WorkerStates = []string{"idle", "busy", "working", "done"}

// SetWorkerState marks worker as being in state.
func (m *Metrics) SetWorkerState(worker, state string) {
	if m == nil {
		return
	}
	for _, s := range WorkerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.workerState.WithLabelValues(worker, s).Set(v)
	}
}

// InferenceCompleted counts a finished request; fallback marks the failure
// sentinel.
func (m *Metrics) InferenceCompleted(fallback bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	m.inferenceRequests.WithLabelValues(outcome).Inc()
}
