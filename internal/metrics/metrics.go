// Package metrics holds the Prometheus collectors of the sync server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expensedash"

// Metrics groups every collector. Create one per process with New.
type Metrics struct {
	Sessions          prometheus.Gauge
	Commands          *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	UnknownCommands   prometheus.Counter
	BroadcastLines    prometheus.Counter
	BroadcastFailures prometheus.Counter
	SnapshotLines     prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Currently connected sessions.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Handled commands by name and outcome.",
		}, []string{"command", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"command"}),
		UnknownCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_commands_total",
			Help:      "Lines ignored because their command name is not recognized.",
		}),
		BroadcastLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_lines_total",
			Help:      "Lines delivered by broadcast, counted once per recipient.",
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Broadcast writes that failed for one recipient.",
		}),
		SnapshotLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_lines",
			Help:      "Lines per snapshot sent.",
			Buckets:   prometheus.ExponentialBuckets(2, 4, 8),
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Sessions,
		m.Commands,
		m.CommandDuration,
		m.UnknownCommands,
		m.BroadcastLines,
		m.BroadcastFailures,
		m.SnapshotLines,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
