// Package metrics records workflow operation metrics
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "llmflows"

	// PushJob is the Pushgateway job name used by Push
	PushJob = "llmflows"

	// stageTotal labels the whole-operation duration in the stage histogram
	stageTotal = "total"
)

// durationBuckets span a fast local model up to a slow hosted completion
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// MetricsCollector records workflow runs into its own Prometheus registry
type MetricsCollector struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewCollector creates a collector with a fresh registry, so nothing from
// the default registry ends up in a push.
func NewCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Workflow runs by operation and status",
		}, []string{"operation", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Workflow run and stage durations",
			Buckets:   durationBuckets,
		}, []string{"operation", "stage"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed workflow runs by operation and error type",
		}, []string{"operation", "error_type"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per operation",
		}, []string{"operation"}),
	}
}

func seconds(ms int64) float64 {
	return (time.Duration(ms) * time.Millisecond).Seconds()
}

// RecordOperation counts a finished run and observes its total duration
func (m *MetricsCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
	m.operations.WithLabelValues(operation, status).Inc()
	m.durations.WithLabelValues(operation, stageTotal).Observe(seconds(durationMs))
	if status == "success" {
		m.lastSuccess.WithLabelValues(operation).SetToCurrentTime()
	}
}

// RecordStage observes the duration of one stage of a run
func (m *MetricsCollector) RecordStage(ctx context.Context, operation string, stage string, durationMs int64) {
	m.durations.WithLabelValues(operation, stage).Observe(seconds(durationMs))
}

// RecordError counts a failed run by its error classification
func (m *MetricsCollector) RecordError(ctx context.Context, operation string, errorType string) {
	m.errors.WithLabelValues(operation, errorType).Inc()
}

// Registry returns the Prometheus registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the collected metrics to a Prometheus Pushgateway. A CLI run is
// too short-lived to be scraped.
func (m *MetricsCollector) Push(ctx context.Context, gatewayURL string) error {
	err := push.New(gatewayURL, PushJob).
		Gatherer(m.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
