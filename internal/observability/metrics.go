// Package observability defines the Prometheus metrics for the ETL pipeline.
//
// Metrics register on the default registry at package init and are exposed
// by the /metrics route.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sous"

const pipelineSubsystem = "pipeline"

// PipelineMetrics holds the sync counters and timings.
type PipelineMetrics struct {
	// SyncsTotal counts sync attempts. Labels: status (SUCCESS, FAILED)
	SyncsTotal *prometheus.CounterVec

	// SyncDurationSeconds measures the analytical rebuild.
	SyncDurationSeconds prometheus.Histogram

	// TransactionsIngestedTotal counts POS rows committed to the transactional store.
	TransactionsIngestedTotal prometheus.Counter

	// SnapshotRows is the row count of the last successful analytical rebuild.
	SnapshotRows prometheus.Gauge
}

var DefaultMetrics = &PipelineMetrics{
	SyncsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: pipelineSubsystem,
		Name:      "syncs_total",
		Help:      "Analytical sync attempts by outcome.",
	}, []string{"status"}),
	SyncDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: pipelineSubsystem,
		Name:      "sync_duration_seconds",
		Help:      "Time spent rebuilding the analytical snapshot.",
		Buckets:   prometheus.DefBuckets,
	}),
	TransactionsIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: pipelineSubsystem,
		Name:      "transactions_ingested_total",
		Help:      "POS transactions committed to the transactional store.",
	}),
	SnapshotRows: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: pipelineSubsystem,
		Name:      "snapshot_rows",
		Help:      "Rows in the most recent analytical snapshot.",
	}),
}

func (m *PipelineMetrics) RecordSync(status string, seconds float64) {
	m.SyncsTotal.WithLabelValues(status).Inc()
	m.SyncDurationSeconds.Observe(seconds)
}
