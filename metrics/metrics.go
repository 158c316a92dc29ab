// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdrive_http_requests_total",
			Help: "HTTP requests handled, by route template and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bdrive_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// FileLifecycle counts upload, trash and restore transitions.
	FileLifecycle = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdrive_file_lifecycle_total",
			Help: "File lifecycle transitions by action.",
		},
		[]string{"action"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bdrive_sweep_runs_total",
			Help: "Trash sweep runs by outcome (completed, skipped, failed).",
		},
		[]string{"outcome"},
	)

	SweepRemovedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdrive_sweep_removed_files_total",
		Help: "Trashed files permanently removed by the sweep.",
	})

	SweepFailedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bdrive_sweep_failed_files_total",
		Help: "Trashed files the sweep could not remove.",
	})
)

const (
	ActionUpload  = "upload"
	ActionTrash   = "trash"
	ActionRestore = "restore"
)
