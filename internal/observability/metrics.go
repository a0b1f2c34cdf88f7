package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PinsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posterboard_pins_created_total",
		Help: "Total number of pins created",
	})

	RepliesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posterboard_replies_created_total",
		Help: "Total number of replies created",
	})

	// PinDeleteDenied counts deletes that reached the store but removed no rows.
	PinDeleteDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posterboard_pin_delete_denied_total",
		Help: "Total number of pin deletes that affected zero rows",
	})

	// ReplyCountFallbacks counts list loads served without reply counts.
	ReplyCountFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posterboard_reply_count_fallback_total",
		Help: "Total number of pin list loads that fell back to the query without reply counts",
	}, []string{"reason"})

	PosterUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posterboard_poster_uploads_total",
		Help: "Total number of poster uploads by result",
	}, []string{"result"})

	PosterObjectsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posterboard_poster_objects_purged_total",
		Help: "Total number of superseded poster objects removed by the janitor",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posterboard_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posterboard_db_query_duration_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnections is the gauge of connections per topic kind.
	WebSocketConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "posterboard_ws_connections",
		Help: "Number of active WebSocket connections",
	}, []string{"scope"})

	// WebSocketEvents counts events fanned out to subscribers by type.
	WebSocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posterboard_ws_events_total",
		Help: "Total realtime events published by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posterboard_ws_dropped_messages_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
