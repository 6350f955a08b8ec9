// Package metrics holds the Prometheus collectors shared by the client daemon and the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Anti-cheat ─────────────────────────────────────────────────────────────

// SubmissionDecisions counts evaluated submissions by outcome ("accepted" or a rejection reason).
var SubmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "anticheat",
	Name:      "decisions_total",
	Help:      "Total disposal submissions evaluated, by outcome.",
}, []string{"outcome"})

// HistoryResets counts histories reinitialised after a corrupt load.
var HistoryResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "anticheat",
	Name:      "history_resets_total",
	Help:      "Total submission histories reset because they could not be decoded.",
})

// ─── Sync ───────────────────────────────────────────────────────────────────

// SyncRuns counts sync runs by result: ok, offline, busy, cancelled, error.
var SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "sync",
	Name:      "runs_total",
	Help:      "Total sync runs, by result.",
}, []string{"result"})

// SyncRecords counts pushed records by result: synced, failed.
var SyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "sync",
	Name:      "records_total",
	Help:      "Total records pushed to the API, by result.",
}, []string{"result"})

// SyncDuration tracks how long a sync run takes.
var SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "trackeco",
	Subsystem: "sync",
	Name:      "run_duration_seconds",
	Help:      "Duration of sync runs.",
	Buckets:   prometheus.DefBuckets,
})

// PendingRecords is the number of unsynced records seen at the start of the last run.
var PendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "trackeco",
	Subsystem: "sync",
	Name:      "pending_records",
	Help:      "Unsynced records at the start of the last sync run.",
})

// ─── Server ─────────────────────────────────────────────────────────────────

// AwardsGranted counts server awards by kind: standard, first_disposal, duplicate, daily_challenge.
var AwardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "api",
	Name:      "awards_total",
	Help:      "Total disposal awards processed by the API, by kind.",
}, []string{"kind"})

// PointsAwarded sums the points granted by the API.
var PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "trackeco",
	Subsystem: "api",
	Name:      "points_awarded_total",
	Help:      "Total points granted by the API.",
})

// WebSocketClients is the number of connected live-feed clients.
var WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "trackeco",
	Subsystem: "api",
	Name:      "websocket_clients",
	Help:      "Connected websocket clients.",
})
