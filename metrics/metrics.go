// Package metrics holds Prometheus collectors of the exchange pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exchange"

// Matching engine metrics
var (
	EngineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Client requests processed by the matching engine",
		},
		[]string{"type"},
	)

	EngineRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "request_errors_total",
			Help:      "Client requests which failed processing",
		},
		[]string{"class"},
	)

	EngineResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "responses_total",
			Help:      "Client responses emitted by the matching engine",
		},
		[]string{"type"},
	)

	EngineMarketUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "market_updates_total",
			Help:      "Market updates emitted by the matching engine",
		},
		[]string{"type"},
	)
)

// Queue metrics
var (
	QueueBackpressure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "backpressure_total",
			Help:      "Times a producer found its queue full and had to wait",
		},
		[]string{"queue"},
	)

	QueueDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dropped_total",
			Help:      "Elements dropped because the queue stayed full during shutdown or on a lossy feed",
		},
		[]string{"queue"},
	)
)

// Market data metrics
var (
	MarketDataPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "published_total",
			Help:      "Incremental updates published",
		},
	)

	MarketDataSnapshots = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "snapshots_total",
			Help:      "Full snapshots published",
		},
	)

	MarketDataSendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "send_errors_total",
			Help:      "Feed send failures",
		},
		[]string{"feed"},
	)

	ConsumerForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "forwarded_total",
			Help:      "Market updates forwarded downstream by the consumer",
		},
	)

	ConsumerGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "gaps_total",
			Help:      "Sequence gaps detected on the incremental feed",
		},
	)

	ConsumerRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "recoveries_total",
			Help:      "Completed snapshot recoveries",
		},
	)

	ConsumerUnexpectedSnapshots = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "unexpected_snapshots_total",
			Help:      "Snapshot messages discarded while not recovering",
		},
	)

	ConsumerPollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "poll_errors_total",
			Help:      "Feed receive failures",
		},
		[]string{"feed"},
	)

	ConsumerRecovering = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "recovering",
			Help:      "1 while the consumer is recovering from a snapshot",
		},
	)
)

// Handler returns the HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
