// Package metrics provides Prometheus metrics for the AVRemote daemon:
// counters, gauges, and histograms for connections, inbound dispatch,
// outbound exchanges, and notification streams.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Connections ────────────────────────────────────────────────────────────

// PeersConnected tracks peers with a live control channel.
var PeersConnected = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "avremote",
	Name:      "peers_connected",
	Help:      "Number of peers with an established control channel.",
})

// PeersKnown tracks peers in the registry, connected or not.
var PeersKnown = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "avremote",
	Name:      "peers_known",
	Help:      "Number of peers the supervisor tracks.",
})

// ConnectFailures tracks failed outbound connection attempts.
var ConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "avremote",
	Name:      "connect_failures_total",
	Help:      "Total failed outbound control-channel attempts.",
})

// ConnectionResets tracks connections torn down after transport or
// decode failures.
var ConnectionResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "avremote",
	Name:      "connection_resets_total",
	Help:      "Total control-channel resets.",
})

// ─── Inbound Dispatch ───────────────────────────────────────────────────────

// InboundCommands tracks dispatched inbound commands by opcode and result.
var InboundCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "avremote",
	Name:      "inbound_commands_total",
	Help:      "Total inbound commands dispatched, by opcode and result.",
}, []string{"opcode", "result"})

// ─── Outbound Exchanges ─────────────────────────────────────────────────────

// OutboundExchanges tracks controller-initiated exchanges by operation
// and outcome.
var OutboundExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "avremote",
	Name:      "outbound_exchanges_total",
	Help:      "Total outbound command exchanges, by operation and outcome.",
}, []string{"operation", "outcome"})

// ContinuationRounds tracks how many packets a fetched response spanned.
var ContinuationRounds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "avremote",
	Name:      "continuation_rounds",
	Help:      "Packets per fetched vendor response.",
	Buckets:   []float64{1, 2, 3, 5, 8, 13},
})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationEvents tracks received notification events by type.
var NotificationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "avremote",
	Name:      "notification_events_total",
	Help:      "Total notification events received, by event type.",
}, []string{"event"})

// NotificationStreamsActive tracks live notification subscriptions.
var NotificationStreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "avremote",
	Name:      "notification_streams_active",
	Help:      "Number of live notification subscriptions.",
})
