package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	chatConnectionsActive    prometheus.Gauge
	chatMessagesSent         prometheus.Counter
	pushesSent               prometheus.Counter
	pushesSuppressed         prometheus.Counter
	pushesCancelled          prometheus.Counter
	pushSubscriptionsRemoved prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the messaging core.
func RegisterMetrics() {
	registerOnce.Do(func() {
		chatConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of websocket chat connections currently open.",
		})

		chatMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages persisted and broadcast.",
		})

		pushesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_notifications_sent_total",
			Help: "Total number of push notifications delivered.",
		})

		pushesSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_notifications_suppressed_total",
			Help: "Debounce timers that fired but found the message already seen.",
		})

		pushesCancelled = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_notifications_cancelled_total",
			Help: "Debounce timers cancelled before firing.",
		})

		pushSubscriptionsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "push_subscriptions_removed_total",
			Help: "Push subscriptions removed after the endpoint reported gone.",
		})

		prometheus.MustRegister(chatConnectionsActive, chatMessagesSent, pushesSent, pushesSuppressed, pushesCancelled, pushSubscriptionsRemoved)
	})
}

// ChatConnectionsActive exposes the open-connection gauge.
func ChatConnectionsActive() prometheus.Gauge {
	RegisterMetrics()
	return chatConnectionsActive
}

// ChatMessagesSent exposes the sent-message counter.
func ChatMessagesSent() prometheus.Counter {
	RegisterMetrics()
	return chatMessagesSent
}

// PushesSent exposes the delivered-push counter.
func PushesSent() prometheus.Counter {
	RegisterMetrics()
	return pushesSent
}

// PushesSuppressed exposes the counter for debounce fires that found the message seen.
func PushesSuppressed() prometheus.Counter {
	RegisterMetrics()
	return pushesSuppressed
}

// PushesCancelled exposes the counter for cancelled debounce timers.
func PushesCancelled() prometheus.Counter {
	RegisterMetrics()
	return pushesCancelled
}

// PushSubscriptionsRemoved exposes the counter for dead subscriptions cleaned up.
func PushSubscriptionsRemoved() prometheus.Counter {
	RegisterMetrics()
	return pushSubscriptionsRemoved
}
