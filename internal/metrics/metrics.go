package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lostfound_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lostfound_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lostfound_matches_created_total",
			Help: "Matches persisted by the matching engine",
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lostfound_notifications_created_total",
			Help: "Notification rows created, by type",
		},
		[]string{"type"},
	)

	// status is "ok" or "error"
	LiveDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lostfound_live_deliveries_total",
			Help: "Live channel publishes of notifications",
		},
		[]string{"status"},
	)

	PushTokensSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lostfound_push_tokens_sent_total",
			Help: "Device tokens handed to the push gateway",
		},
	)

	PushChunkFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lostfound_push_chunk_failures_total",
			Help: "Push gateway calls that failed",
		},
	)

	PushInvalidTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lostfound_push_invalid_tokens_total",
			Help: "Device tokens removed after the gateway reported them unregistered",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lostfound_ws_connections",
			Help: "Live WebSocket connections on this instance",
		},
	)

	// status is "processed", "retry" or "dead"
	OutboxEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lostfound_outbox_events_total",
			Help: "Outbox events handled, by type and outcome",
		},
		[]string{"type", "status"},
	)

	NotificationsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lostfound_notifications_purged_total",
			Help: "Notifications removed by the retention sweep",
		},
	)
)
