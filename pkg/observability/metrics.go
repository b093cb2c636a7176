// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the qwenrelay gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for conversational backend
// latencies, ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwenrelay_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qwenrelay_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qwenrelay_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal counts requests sent to the conversational backend.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwenrelay_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"site", "operation", "status"},
	)

	// UpstreamLatency records backend call latency in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qwenrelay_upstream_latency_seconds",
			Help:    "Upstream latency",
			Buckets: LLMBuckets,
		},
		[]string{"site", "operation"},
	)

	// StreamResetsTotal counts non-monotonic snapshot events where the full
	// new content was re-emitted as the delta.
	StreamResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qwenrelay_stream_resets_total",
			Help: "Stream content resets",
		},
	)

	// TaskPollsTotal counts long-poll status queries by outcome.
	TaskPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qwenrelay_task_polls_total",
			Help: "Async task status polls",
		},
		[]string{"outcome"},
	)

	// PrewarmFailuresTotal counts best-effort session pre-warm failures.
	PrewarmFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qwenrelay_prewarm_failures_total",
			Help: "Session pre-warm failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		StreamResetsTotal,
		TaskPollsTotal,
		PrewarmFailuresTotal,
	)
}
