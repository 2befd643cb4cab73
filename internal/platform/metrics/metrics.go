package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReportsIngested *prometheus.CounterVec
	MismatchRows    *prometheus.CounterVec
	IngestFailures  *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ReportsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spotcheck_reports_ingested_total",
			Help: "Reports successfully ingested, by reference type",
		}, []string{"reference_type"}),
		MismatchRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spotcheck_mismatch_rows_total",
			Help: "Ledger rows written during ingestion, by derived status",
		}, []string{"status"}),
		IngestFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spotcheck_ingest_failures_total",
			Help: "Failed report ingestions, by reference type",
		}, []string{"reference_type"}),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "spotcheck_ingest_duration_seconds",
			Help:    "Wall time of report ingestion transactions",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveIngest records one successful ingestion.
func (m *Metrics) ObserveIngest(refType string, newRows, existingRows, resolvedRows int, elapsed time.Duration) {
	m.ReportsIngested.WithLabelValues(refType).Inc()
	m.MismatchRows.WithLabelValues("NEW").Add(float64(newRows))
	m.MismatchRows.WithLabelValues("EXISTING").Add(float64(existingRows))
	m.MismatchRows.WithLabelValues("RESOLVED").Add(float64(resolvedRows))
	m.IngestDuration.Observe(elapsed.Seconds())
}
