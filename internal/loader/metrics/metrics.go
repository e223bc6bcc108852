package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted tracks total load jobs submitted
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loader_jobs_submitted_total",
			Help: "Total number of load jobs submitted",
		},
	)

	// JobsSucceeded tracks load jobs accepted without error
	JobsSucceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loader_jobs_succeeded_total",
			Help: "Total number of load jobs that succeeded",
		},
	)

	// JobsFailed tracks load job failures by classified cause
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loader_jobs_failed_total",
			Help: "Total number of load jobs that failed",
		},
		[]string{"cause"},
	)

	// ItemsDeferred tracks items pushed past the daily job cap
	ItemsDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loader_items_deferred_total",
			Help: "Total number of items deferred past the per-run job cap",
		},
	)

	// LedgerEntries tracks the current size of the failure ledger
	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loader_ledger_entries",
			Help: "Current number of outstanding failure ledger entries",
		},
	)

	// LastRunTimestamp tracks when the last pass finished
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loader_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed pass",
		},
	)
)
