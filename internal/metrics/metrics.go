// Package metrics holds the Prometheus collectors exported by hostwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for SnapshotsDropped.
const (
	ReasonMissingHostname = "missing_hostname"
	ReasonMalformed       = "malformed"
)

var (
	SnapshotsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostwatch_snapshots_dropped_total",
			Help: "Host snapshots discarded before reaching the host table",
		},
		[]string{"reason"},
	)

	SnapshotsStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostwatch_snapshots_stale_total",
			Help: "Host snapshots ignored because a newer one was already stored",
		},
	)

	LogRecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostwatch_log_records_dropped_total",
			Help: "Polled log records discarded at decode time",
		},
	)

	LogPollsStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hostwatch_log_polls_stale_total",
			Help: "Log poll responses discarded because a later poll was already applied",
		},
	)

	TransportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostwatch_transport_failures_total",
			Help: "Failed fetches or stream disconnects by source",
		},
		[]string{"source"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostwatch_fetch_duration_seconds",
			Help:    "Duration of backend fetches",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	FetchesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostwatch_fetches_skipped_total",
			Help: "Scheduled fetches skipped because the in-flight limit was reached",
		},
		[]string{"endpoint"},
	)

	HostsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostwatch_hosts",
			Help: "Hosts in the table by lifecycle state",
		},
		[]string{"state"},
	)

	LogFeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostwatch_log_feed_entries",
			Help: "Entries currently visible in the log feed",
		},
	)

	PushEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostwatch_push_events_total",
			Help: "Events received from the push stream by name",
		},
		[]string{"event"},
	)
)
