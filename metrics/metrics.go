// Package metrics exposes the process-wide Prometheus metrics the monitor
// and its adjacent components populate. The metrics are process-wide
// package-level vars, created and registered against the default
// Prometheus registry once, at import time.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const kindLabel = "kind"

var (
	// TransactionsBroadcastTotal counts successful (including
	// idempotent-already-in-chain) broadcasts, by TransactionKind.
	TransactionsBroadcastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockchain_transactions_broadcast_total",
			Help: "The number of transactions broadcast.",
		},
		[]string{kindLabel},
	)

	// SyncDurationSeconds observes the wall-clock duration of one
	// MonitorActor sync tick.
	SyncDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "monitor_sync_duration_seconds",
			Help: "The duration of one sync run of the monitor.",
			Buckets: []float64{
				2, 5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120, 130,
				140, 150, 160, 170, 180, 190, 200, 210, 220, 230, 240, 250,
				260, 270, 280, 290, 300,
			},
		},
	)

	// PingLatencySeconds tracks round-trip latency of the adjacent P2P
	// ping component; the chain monitor core does not
	// populate it itself, but registers it so the two subsystems share
	// one process-wide registry.
	PingLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "p2p_ping_latency_seconds",
			Help: "Round-trip latency of peer-to-peer ping messages.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(TransactionsBroadcastTotal)
	prometheus.MustRegister(SyncDurationSeconds)
	prometheus.MustRegister(PingLatencySeconds)
}
