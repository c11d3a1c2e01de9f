// Package metrics exposes ingestion counters over Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the per-run ingestion counters. Labels are the
// chain name and, where it matters, the outcome.
type Metrics struct {
	FilesProcessed *prometheus.CounterVec
	RowsInserted   *prometheus.CounterVec
	RowsRejected   *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		FilesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_files_processed_total",
			Help: "Price files processed, by chain and outcome (loaded, skipped, failed).",
		}, []string{"chain", "outcome"}),
		RowsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_inserted_total",
			Help: "Price rows written to storage, by chain.",
		}, []string{"chain"}),
		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_rows_rejected_total",
			Help: "Rows dropped by validation, by chain.",
		}, []string{"chain"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_fetch_errors_total",
			Help: "Failed downloads, by chain.",
		}, []string{"chain"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Wall time of one chain run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"chain"}),
		registry: reg,
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
