// Package metrics declares the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote engine metrics
var (
	// VotesTotal tracks vote mutations by entity kind and outcome
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Total vote mutations by entity kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// FollowsTotal tracks follow graph mutations by relation kind, operation and outcome
	FollowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "follows_total",
			Help: "Total follow graph mutations by kind, operation and outcome",
		},
		[]string{"kind", "op", "outcome"},
	)

	// FeaturedAnswersTotal tracks feature transitions by outcome
	FeaturedAnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "featured_answers_total",
			Help: "Total featured-answer transitions by outcome",
		},
		[]string{"outcome"},
	)
)

// Hub metrics
var (
	// HubActiveRooms tracks number of rooms with at least one subscriber
	HubActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_rooms",
			Help: "Number of rooms with at least one subscribed connection",
		},
	)

	// HubConnectedClients tracks total connected WebSocket clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Total number of connected WebSocket clients",
		},
	)

	// HubSlowClientsEvicted tracks clients evicted due to a full send buffer
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total WebSocket clients evicted because their send buffer was full",
		},
	)

	// HubRejectedSubscriptions tracks subscriptions rejected by the room limit
	HubRejectedSubscriptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_rejected_subscriptions_total",
			Help: "Total subscriptions rejected because the room was full",
		},
	)

	// HubEventsPublished tracks events fanned out by event name
	HubEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_published_total",
			Help: "Total events fanned out to rooms by event name",
		},
		[]string{"event"},
	)
)

// WebSocket writer metrics
var (
	// WebSocketMessageSendDuration tracks message write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures tracks failed pings (client likely gone)
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures",
		},
	)
)

// Cross-instance relay metrics
var (
	// RelayPublishedTotal tracks events published to the Redis relay channel
	RelayPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_published_total",
			Help: "Total events published to the Redis relay channel",
		},
	)

	// RelayReceivedTotal tracks relay events received from other instances
	RelayReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_received_total",
			Help: "Total relay events received from other instances",
		},
	)

	// RelayDroppedTotal tracks relay publishes dropped by errors or an open breaker
	RelayDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dropped_total",
			Help: "Total relay publishes dropped due to errors or an open circuit breaker",
		},
	)
)
