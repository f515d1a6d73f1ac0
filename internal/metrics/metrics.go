package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miteinander_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "miteinander_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Realtime gateway metrics
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "miteinander_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miteinander_ws_connections_rejected_total",
			Help: "Rejected websocket connection attempts",
		},
		[]string{"reason"},
	)

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miteinander_ws_events_total",
			Help: "Inbound websocket events by name",
		},
		[]string{"event"},
	)

	IdentitiesOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "miteinander_identities_online",
			Help: "Distinct identities with at least one live connection",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miteinander_messages_sent_total",
			Help: "Conversation messages persisted, by message type",
		},
		[]string{"type"},
	)

	SupportMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "miteinander_support_messages_sent_total",
			Help: "Support ticket messages persisted",
		},
	)

	SettlementsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "miteinander_settlements_completed_total",
			Help: "Accepted settlements applied",
		},
	)

	TicketsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "miteinander_tickets_claimed_total",
			Help: "Support tickets auto-assigned on first agent reply",
		},
	)

	NotificationsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "miteinander_notifications_queued_total",
			Help: "Personal-room events queued for offline identities",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miteinander_rate_limit_hits_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"endpoint"},
	)
)
