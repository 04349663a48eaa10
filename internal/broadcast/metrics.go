package broadcast

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "broadcast"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of queued entities, labeled by message type.
	QueuedEntities metrics.Counter
	// Number of broadcast batches, labeled by message type.
	BroadcastBatches metrics.Counter
	// Number of failed batches, labeled by message type.
	FailedBatches metrics.Counter
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
		QueuedEntities: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queued_entities",
			Help:      "Number of entities queued for broadcast by message type.",
		}, append(labels, "type")).With(labelsAndValues...),
		BroadcastBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "batches",
			Help:      "Number of broadcast batches by message type.",
		}, append(labels, "type")).With(labelsAndValues...),
		FailedBatches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "failed_batches",
			Help:      "Number of failed broadcast batches by message type.",
		}, append(labels, "type")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		QueuedEntities:   discard.NewCounter(),
		BroadcastBatches: discard.NewCounter(),
		FailedBatches:    discard.NewCounter(),
	}
}
