package refresh

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "refresh"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of refreshed nodes, labeled by the resulting status.
	RefreshedNodes metrics.Counter
	// Number of nodes learned from other nodes.
	DiscoveredNodes metrics.Counter
	// Number of imported experience tables.
	ImportedExperiences metrics.Counter
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
		RefreshedNodes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "refreshed_nodes",
			Help:      "Number of refreshed nodes by resulting status.",
		}, append(labels, "status")).With(labelsAndValues...),
		DiscoveredNodes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "discovered_nodes",
			Help:      "Number of nodes learned from other nodes.",
		}, labels).With(labelsAndValues...),
		ImportedExperiences: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "imported_experiences",
			Help:      "Number of experience tables imported from other nodes.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		RefreshedNodes:      discard.NewCounter(),
		DiscoveredNodes:     discard.NewCounter(),
		ImportedExperiences: discard.NewCounter(),
	}
}
