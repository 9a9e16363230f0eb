// Package telemetry wires up the ambient logging and metrics every
// other package reports through: a structured zerolog console writer
// with a configurable global level, and a set of counter/histogram/gauge
// collectors on a private prometheus registry (no OpenTelemetry SDK,
// plain prometheus/client_golang throughout).
package telemetry

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. debug widens the
// level to Debug; otherwise the engine logs at Info and above.
func InitLogger(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Metrics holds the matching engine's Prometheus instrumentation: order
// throughput, trade throughput, per-event processing latency, and queue
// occupancy across the input queue and worker pools.
type Metrics struct {
	Registry *prometheus.Registry

	OrdersProcessed  *prometheus.CounterVec
	TradesExecuted   prometheus.Counter
	EventLatency     prometheus.Histogram
	QueueDepth       prometheus.Gauge
	ActiveWorkers    *prometheus.GaugeVec
	RecoverySkipped  prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set on its own
// registry, so tests can construct independent instances without
// colliding on prometheus's default global registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		OrdersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matching_engine",
			Name:      "orders_processed_total",
			Help:      "Orders processed, labeled by outcome (accepted, rejected, canceled, filled, partial_fill).",
		}, []string{"outcome"}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matching_engine",
			Name:      "trades_executed_total",
			Help:      "Trades produced by the matching engine.",
		}),
		EventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matching_engine",
			Name:      "event_processing_seconds",
			Help:      "Time to process one input-queue event end to end.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 16),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matching_engine",
			Name:      "input_queue_depth",
			Help:      "Unconsumed slots currently published on the input queue.",
		}),
		ActiveWorkers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matching_engine",
			Name:      "active_workers",
			Help:      "Busy worker slots, labeled by pool (event, transaction).",
		}, []string{"pool"}),
		RecoverySkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matching_engine",
			Name:      "recovery_skipped_records_total",
			Help:      "Malformed durable-log records skipped during startup recovery.",
		}),
	}

	registry.MustRegister(
		m.OrdersProcessed,
		m.TradesExecuted,
		m.EventLatency,
		m.QueueDepth,
		m.ActiveWorkers,
		m.RecoverySkipped,
	)
	return m
}
