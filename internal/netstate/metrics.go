package netstate

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "netstate"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of completed time synchronization rounds.
	NodeAge metrics.Gauge
	// 1 if the local chain is considered synchronized.
	ChainSynchronized metrics.Gauge
	// Recorded interaction outcomes, labeled by result.
	Interactions metrics.Counter
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
		NodeAge: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "node_age",
			Help:      "Number of completed time synchronization rounds.",
		}, labels).With(labelsAndValues...),
		ChainSynchronized: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "chain_synchronized",
			Help:      "Whether the local chain is synchronized (1) or not (0).",
		}, labels).With(labelsAndValues...),
		Interactions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "interactions",
			Help:      "Number of recorded interaction outcomes.",
		}, append(labels, "result")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		NodeAge:           discard.NewGauge(),
		ChainSynchronized: discard.NewGauge(),
		Interactions:      discard.NewCounter(),
	}
}
