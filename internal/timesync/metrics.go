package timesync

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "timesync"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of synchronization rounds.
	Rounds metrics.Counter
	// Number of rounds without usable samples.
	FailedRounds metrics.Counter
	// Number of samples collected in the last round.
	Samples metrics.Gauge
	// Cumulative clock offset in milliseconds.
	Offset metrics.Gauge
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
		Rounds: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rounds",
			Help:      "Number of time synchronization rounds.",
		}, labels).With(labelsAndValues...),
		FailedRounds: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "failed_rounds",
			Help:      "Number of rounds without usable samples.",
		}, labels).With(labelsAndValues...),
		Samples: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "samples",
			Help:      "Number of samples collected in the last round.",
		}, labels).With(labelsAndValues...),
		Offset: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "offset_ms",
			Help:      "Cumulative network clock offset in milliseconds.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Rounds:       discard.NewCounter(),
		FailedRounds: discard.NewCounter(),
		Samples:      discard.NewGauge(),
		Offset:       discard.NewGauge(),
	}
}
