package ghost

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the counter-map style of internal/waku's
// NetworkMetrics, registered into a registry via MustRegisterMetrics.
var (
	publishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostcore",
		Subsystem: "ghost",
		Name:      "publish_failures_total",
		Help:      "Number of gossip publish attempts that failed.",
	})
	messagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostcore",
		Subsystem: "ghost",
		Name:      "messages_delivered_total",
		Help:      "Number of outbound messages that received a delivery ack.",
	})
	messagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ghostcore",
		Subsystem: "ghost",
		Name:      "messages_dropped_total",
		Help:      "Number of inbound gossip deliveries dropped (decrypt failure, malformed envelope, rate limit).",
	})
	peerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ghostcore",
		Subsystem: "ghost",
		Name:      "peer_count",
		Help:      "Current number of peers the transport is connected to.",
	})
	ackRoundTripSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ghostcore",
		Subsystem: "ghost",
		Name:      "ack_round_trip_seconds",
		Help:      "Time between sending a message and receiving its delivery ack.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegisterMetrics registers the actor's counters/gauge/histogram with
// reg. Call once per registry (the same collectors may be registered into
// several registries); a nil reg is a no-op so tests can skip registration.
func MustRegisterMetrics(reg *prometheus.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(publishFailures, messagesDelivered, messagesDropped, peerCount, ackRoundTripSeconds)
}
