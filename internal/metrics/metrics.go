// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSAuthenticatedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_authenticated_connections",
			Help: "Current number of WebSocket connections with an attached identity",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket frames queued to clients",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket frames received from clients",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // decode, rate_limited, queue_full, write, unexpected_close
	)

	// Authentication Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_credential_resolutions_total",
			Help: "Total number of credential resolutions by result",
		},
		[]string{"result"}, // success, invalid, unknown_subject
	)

	// Delivery Metrics
	DeliverySends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_sends_total",
			Help: "Total number of send requests by addressing mode and result",
		},
		[]string{"mode", "result"}, // mode: broadcast, direct, group
	)

	DeliveryTargets = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_fanout_targets",
			Help:    "Number of local connections targeted per delivery",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"mode"},
	)

	DeliveryPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_pushes_total",
			Help: "Total number of per-connection pushes by result",
		},
		[]string{"result"}, // ok, failed
	)

	PersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_persist_duration_seconds",
			Help:    "Time spent persisting a message before fan-out",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Fan-out Backbone Metrics
	BackbonePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_envelopes_published_total",
			Help: "Total number of delivery envelopes published to the backbone",
		},
		[]string{"backend", "result"}, // result: ok, failed, fallback
	)

	BackboneReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_envelopes_received_total",
			Help: "Total number of delivery envelopes consumed from the backbone",
		},
		[]string{"backend", "result"}, // result: ok, decode_failed
	)

	PresenceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_updates_total",
			Help: "Total number of presence set updates",
		},
		[]string{"op", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthAttempt records the outcome of a credential resolution.
func RecordAuthAttempt(result string) {
	AuthAttempts.WithLabelValues(result).Inc()
}

// RecordSend records a completed or rejected send request.
func RecordSend(mode, result string) {
	DeliverySends.WithLabelValues(mode, result).Inc()
}

// RecordFanout records the local target count and per-push outcomes of one delivery.
func RecordFanout(mode string, targets, failed int) {
	DeliveryTargets.WithLabelValues(mode).Observe(float64(targets))
	if ok := targets - failed; ok > 0 {
		DeliveryPushes.WithLabelValues("ok").Add(float64(ok))
	}
	if failed > 0 {
		DeliveryPushes.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordPersist records the duration of a message store write.
func RecordPersist(duration time.Duration) {
	PersistDuration.Observe(duration.Seconds())
}

// RecordBackbonePublish records an envelope publish outcome.
func RecordBackbonePublish(backend, result string) {
	BackbonePublished.WithLabelValues(backend, result).Inc()
}

// RecordBackboneReceive records an envelope consume outcome.
func RecordBackboneReceive(backend, result string) {
	BackboneReceived.WithLabelValues(backend, result).Inc()
}

// RecordPresenceUpdate records a presence add/remove.
func RecordPresenceUpdate(op string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	PresenceUpdates.WithLabelValues(op, result).Inc()
}

// SetBreakerState records a breaker transition. States follow gobreaker's
// numbering (0=closed, 1=half-open, 2=open).
func SetBreakerState(name, from, to string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
