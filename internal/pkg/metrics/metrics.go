// Package metrics defines and registers all custom Prometheus metrics for the
// contract hub. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contracthub"

// ── Acceptance metrics ────────────────────────────────────────────────────────

// ContractsCreatedTotal counts contracts created from accepted proposals.
var ContractsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contracts_created_total",
		Help:      "Total number of contracts created from accepted proposals.",
	},
)

// AcceptRejectedTotal counts accept attempts that did not create a contract.
// Label:
//   - reason: "unauthenticated", "forbidden", "not_found", "conflict" or "error"
var AcceptRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accept_rejected_total",
		Help:      "Total number of proposal accept attempts rejected, by reason.",
	},
	[]string{"reason"},
)

// AcceptDuration measures the accept critical section, lock wait included.
var AcceptDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "accept_duration_seconds",
		Help:      "Duration of proposal acceptance including the per-job lock wait.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Registry metrics ──────────────────────────────────────────────────────────

// RegistryLookupsTotal counts contract registry lookups.
// Label:
//   - result: "hit" (served from memory), "miss" (loaded from the store) or "not_found"
var RegistryLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_lookups_total",
		Help:      "Total number of contract registry lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Hub metrics ───────────────────────────────────────────────────────────────

// RoomsActive tracks the number of rooms with at least one connection.
var RoomsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Current number of contract rooms with at least one connection.",
	},
)

// ConnectionsActive tracks attached connections across all rooms.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Current number of connections attached to contract rooms.",
	},
)

// ConnectRejectedTotal counts connection attempts refused by the hub.
// Label:
//   - reason: "unauthenticated", "forbidden", "not_found" or "error"
var ConnectRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connect_rejected_total",
		Help:      "Total number of room connection attempts rejected, by reason.",
	},
	[]string{"reason"},
)

// MessagesRelayedTotal counts chat messages delivered to a counterpart.
var MessagesRelayedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_relayed_total",
		Help:      "Total number of chat messages relayed to the other party.",
	},
)

// MessagesDroppedTotal counts inbound frames that were not relayed.
// Label:
//   - reason: "peer_absent", "malformed", "rate_limited" or "backpressure"
var MessagesDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dropped_total",
		Help:      "Total number of chat frames not relayed, by reason.",
	},
	[]string{"reason"},
)
