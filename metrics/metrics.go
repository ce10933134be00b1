// Package metrics exposes prometheus collectors for the realtime layer.
// Latency sampling lives here, as a monitoring observer over the transport,
// rather than in the heartbeat path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtsync_events_published_total",
		Help: "Tournament events published, by event type.",
	}, []string{"type"})

	eventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtsync_events_delivered_total",
		Help: "Events fanned out to local subscribers.",
	})

	broadcastLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courtsync_broadcast_latency_seconds",
		Help:    "Time from publish to room fan-out.",
		Buckets: prometheus.DefBuckets,
	})

	reconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtsync_reconnect_attempts_total",
		Help: "Websocket reconnection attempts.",
	})

	connectionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtsync_connection_failures_total",
		Help: "Reconnection budgets exhausted.",
	})

	offlineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtsync_offline_queue_depth",
		Help: "Events waiting for redelivery while disconnected.",
	})

	droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtsync_events_dropped_total",
		Help: "Queued events dropped after exhausting their retry budget.",
	})

	ackTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtsync_ack_timeouts_total",
		Help: "Publishes that timed out waiting for a server ack.",
	})

	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtsync_active_subscriptions",
		Help: "Live transport subscriptions.",
	})
)

func RecordEventPublished(eventType string) { eventsPublished.WithLabelValues(eventType).Inc() }

func RecordEventDelivered() { eventsDelivered.Inc() }

func ObserveBroadcastLatency(d time.Duration) { broadcastLatency.Observe(d.Seconds()) }

func RecordReconnectAttempt() { reconnectAttempts.Inc() }

func RecordConnectionFailure() { connectionFailures.Inc() }

func UpdateOfflineQueueDepth(n int) { offlineQueueDepth.Set(float64(n)) }

func RecordDroppedEvent() { droppedEvents.Inc() }

func RecordAckTimeout() { ackTimeouts.Inc() }

func UpdateActiveSubscriptions(n int) { activeSubscriptions.Set(float64(n)) }
