package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceChecks counts extraction attempts per site
	SourceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_source_checks_total",
		Help: "Number of source checks performed, by site name.",
	}, []string{"site"})

	// FetchErrors counts failed extractions per site
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_fetch_errors_total",
		Help: "Number of source checks that failed at the fetch stage, by site name.",
	}, []string{"site"})

	// Notifications counts emitted notifications per kind
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_notifications_total",
		Help: "Number of notifications emitted, by kind.",
	}, []string{"kind"})

	// Runs counts orchestrator runs per terminal status
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockwatcher_runs_total",
		Help: "Number of monitoring runs, by terminal status.",
	}, []string{"status"})

	// RunDuration observes how long a full run takes
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockwatcher_run_duration_seconds",
		Help:    "Duration of a full monitoring run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
