// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fundflow-lab/internal/fundflow"
	"fundflow-lab/internal/storage"
)

// Failure reasons used as the "reason" label.
const (
	ReasonInvariant      = "invariant"
	ReasonClassification = "classification"
	ReasonNotFound       = "not_found"
	ReasonStorage        = "storage"
	ReasonCanceled       = "canceled"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sequence metrics
	ContractsProcessed     *prometheus.CounterVec
	ContractFailures       *prometheus.CounterVec
	TransactionsClassified prometheus.Counter
	ClassificationLatency  prometheus.Histogram
	SequenceLength         prometheus.Histogram

	// Taxonomy metrics
	TaxonomyCases prometheus.Gauge

	// Feature metrics
	FrequencyRowsWritten prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Store metrics
	StoreOperationDuration *prometheus.HistogramVec
	StoreOperationErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "fundflow"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ContractsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequences",
			Name:      "contracts_processed_total",
			Help:      "Total number of contracts processed by status",
		}, []string{"status"}),
		ContractFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequences",
			Name:      "contract_failures_total",
			Help:      "Total number of contracts whose sequence was discarded, by reason",
		}, []string{"reason"}),
		TransactionsClassified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequences",
			Name:      "transactions_classified_total",
			Help:      "Total number of top-level transactions assigned a case",
		}),
		ClassificationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sequences",
			Name:      "classification_latency_seconds",
			Help:      "Time to build the sequence of one contract",
			Buckets:   prometheus.DefBuckets,
		}),
		SequenceLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sequences",
			Name:      "length",
			Help:      "Number of transactions per contract sequence",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		TaxonomyCases: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "taxonomy",
			Name:      "cases",
			Help:      "Number of cases in the loaded taxonomy",
		}),

		FrequencyRowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "frequency_rows_written_total",
			Help:      "Total number of case frequency rows written",
		}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

		StoreOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		StoreOperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"store", "operation"}),

		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// FailureReason maps a per-contract error to a "reason" label value.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, fundflow.ErrInvariantViolation):
		return ReasonInvariant
	case errors.Is(err, fundflow.ErrClassification):
		return ReasonClassification
	case errors.Is(err, storage.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonStorage
	}
}

// RecordContract records the outcome of one contract.
func (m *Metrics) RecordContract(status string, sequenceLength int, elapsed time.Duration) {
	m.ContractsProcessed.WithLabelValues(status).Inc()
	if status != "ok" {
		return
	}
	m.TransactionsClassified.Add(float64(sequenceLength))
	m.SequenceLength.Observe(float64(sequenceLength))
	m.ClassificationLatency.Observe(elapsed.Seconds())
}

// RecordContractFailure records a discarded sequence.
func (m *Metrics) RecordContractFailure(err error) {
	m.ContractsProcessed.WithLabelValues("failed").Inc()
	m.ContractFailures.WithLabelValues(FailureReason(err)).Inc()
}

// RecordStoreOperation records store operation metrics.
func (m *Metrics) RecordStoreOperation(store, operation string, elapsed time.Duration, err error) {
	m.StoreOperationDuration.WithLabelValues(store, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.StoreOperationErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func (m *Metrics) RecordPipelineRun(phase, status string, elapsed time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
	if status == "ok" {
		m.LastSuccessfulPipeline.SetToCurrentTime()
	}
}
