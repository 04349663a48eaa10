package scheduler

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "scheduler"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of task runs, labeled by timer and result.
	TaskRuns metrics.Counter
	// Task run time in seconds, labeled by timer.
	TaskDuration metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		TaskRuns: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "task_runs",
			Help:      "Number of task runs by timer and result.",
		}, append(labels, "timer", "result")).With(labelsAndValues...),
		TaskDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "task_duration_seconds",
			Help:      "Task run time in seconds by timer.",
			Buckets:   stdprometheus.ExponentialBuckets(0.01, 4, 8),
		}, append(labels, "timer")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		TaskRuns:     discard.NewCounter(),
		TaskDuration: discard.NewHistogram(),
	}
}
