// Package metrics exposes Prometheus instrumentation for the cashbeat bus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashbeat_bus_published_total",
		Help: "Total number of events accepted by the bus",
	}, []string{"topic"})

	busConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashbeat_bus_consumed_total",
		Help: "Total number of successful subscriber deliveries",
	}, []string{"topic"})

	busDeliveryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashbeat_bus_delivery_errors_total",
		Help: "Total number of subscriber handlers that returned an error or panicked",
	}, []string{"topic"})

	busPendingDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cashbeat_bus_pending_depth",
		Help: "Events published but not yet delivered",
	})

	busDeliveryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cashbeat_bus_delivery_latency_seconds",
		Help:    "End-to-end latency from publish to delivery completion",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// IncPublished records an event accepted for the given topic.
func IncPublished(topic string) {
	busPublishedTotal.WithLabelValues(topic).Inc()
	busPendingDepth.Inc()
}

// IncConsumed records one successful delivery on the given topic.
func IncConsumed(topic string) {
	busConsumedTotal.WithLabelValues(topic).Inc()
}

// IncDeliveryError records a failed subscriber delivery on the given topic.
func IncDeliveryError(topic string) {
	busDeliveryErrorsTotal.WithLabelValues(topic).Inc()
}

// ObserveDelivered records delivery completion and its end-to-end latency.
func ObserveDelivered(seconds float64) {
	busPendingDepth.Dec()
	busDeliveryLatency.Observe(seconds)
}

// DecWithdrawn removes a pending event that was cancelled before delivery.
// No latency sample is recorded for withdrawn events.
func DecWithdrawn() {
	busPendingDepth.Dec()
}
