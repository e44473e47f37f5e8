// Package observability provides Prometheus instrumentation for workflow
// runs, exposed through the engine's lifecycle hooks.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/pkg/domain"
)

// Metrics holds the workflow collectors. Create one with NewMetrics, attach
// it with engine.WithLifecycleHooks(m.Hooks()), and serve the registry with
// promhttp.
type Metrics struct {
	nodeVisits      *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	nodeRetries     *prometheus.CounterVec
	nodeFailures    *prometheus.CounterVec
	checkpointSaves prometheus.Counter
	signals         *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors. Pass nil to register on
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_id", "node_type"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "espalier_node_duration_seconds",
				Help: "Duration of node executions",
			},
			[]string{"node_id", "node_type"},
		),
		nodeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_retries_total",
				Help: "Total number of node retry attempts",
			},
			[]string{"node_id"},
		),
		nodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_node_failures_total",
				Help: "Total number of node failures after retry exhaustion",
			},
			[]string{"node_id"},
		),
		checkpointSaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "espalier_checkpoint_saves_total",
				Help: "Total number of checkpoint writes",
			},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_signals_total",
				Help: "Total number of advisory signals emitted",
			},
			[]string{"type"},
		),
	}
	reg.MustRegister(m.nodeVisits, m.nodeDuration, m.nodeRetries, m.nodeFailures, m.checkpointSaves, m.signals)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID, e.NodeType).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.NodeID, e.NodeType).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.nodeFailures.WithLabelValues(e.NodeID).Inc()
			}
		},
		OnNodeRetry: func(ctx context.Context, e *domain.RetryEvent) {
			m.nodeRetries.WithLabelValues(e.NodeID).Inc()
		},
		OnCheckpoint: func(ctx context.Context, e *domain.CheckpointEvent) {
			m.checkpointSaves.Inc()
		},
		OnSignal: func(ctx context.Context, s domain.Signal) {
			m.signals.WithLabelValues(string(s.Type)).Inc()
		},
	}
}
