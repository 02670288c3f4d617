// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks websocket connections currently registered.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Number of currently registered websocket connections",
		},
	)

	// FramesBroadcast counts outbound frames fanned out, by frame type.
	FramesBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_frames_broadcast_total",
			Help: "Total number of outbound frames broadcast to rooms",
		},
		[]string{"type"},
	)

	// SendFailures counts failed writes to individual connections.
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_send_failures_total",
			Help: "Total number of failed writes to websocket connections",
		},
	)

	// FramesDropped counts inbound frames discarded by validation, by reason.
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_inbound_frames_dropped_total",
			Help: "Total number of inbound frames dropped",
		},
		[]string{"reason"},
	)

	// MessagesPersisted counts messages appended to room history.
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Total number of chat messages appended to history",
		},
	)

	// StoreErrors counts failed key-value store operations, by operation.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_errors_total",
			Help: "Total number of failed key-value store operations",
		},
		[]string{"operation"},
	)
)

// RecordConnectionOpened increments the active connection gauge.
func RecordConnectionOpened() {
	ActiveConnections.Inc()
}

// RecordConnectionClosed decrements the active connection gauge.
func RecordConnectionClosed() {
	ActiveConnections.Dec()
}

// RecordBroadcast records one frame fanned out to a room.
func RecordBroadcast(frameType string) {
	FramesBroadcast.WithLabelValues(frameType).Inc()
}

// RecordSendFailure records a failed connection write.
func RecordSendFailure() {
	SendFailures.Inc()
}

// RecordDropped records an inbound frame dropped for reason.
func RecordDropped(reason string) {
	FramesDropped.WithLabelValues(reason).Inc()
}

// RecordMessagePersisted records a message appended to history.
func RecordMessagePersisted() {
	MessagesPersisted.Inc()
}

// RecordStoreError records a failed store operation.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}
