package chainsync

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "chainsync"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of chain comparisons, labeled by result.
	Comparisons metrics.Counter
	// Number of applied blocks.
	AppliedBlocks metrics.Counter
	// Height of the local chain.
	Height metrics.Gauge
	// Number of pulled unconfirmed transactions.
	PulledTransactions metrics.Counter
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
		Comparisons: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "comparisons",
			Help:      "Number of chain comparisons by result.",
		}, append(labels, "result")).With(labelsAndValues...),
		AppliedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "applied_blocks",
			Help:      "Number of blocks applied from remote chains.",
		}, labels).With(labelsAndValues...),
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Height of the local chain.",
		}, labels).With(labelsAndValues...),
		PulledTransactions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pulled_transactions",
			Help:      "Number of unconfirmed transactions pulled from partners.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Comparisons:        discard.NewCounter(),
		AppliedBlocks:      discard.NewCounter(),
		Height:             discard.NewGauge(),
		PulledTransactions: discard.NewCounter(),
	}
}
