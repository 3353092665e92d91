package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the persistence engine.
// Tracks chunk outcomes, operation volume, bulk retries and write latency.
type Metrics struct {
	Chunks        *prometheus.CounterVec
	Operations    *prometheus.CounterVec
	BulkRetries   prometheus.Counter
	BulkBatches   *prometheus.CounterVec
	WriteDuration *prometheus.HistogramVec
}

// New registers the engine metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cpm_repository_chunks_total",
			Help: "Transaction chunks submitted, by outcome",
		}, []string{"outcome"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cpm_repository_operations_total",
			Help: "Write operations committed, by kind",
		}, []string{"kind"}),
		BulkRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "cpm_repository_bulk_retries_total",
			Help: "Bulk batches retried after throttling",
		}),
		BulkBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cpm_repository_bulk_batches_total",
			Help: "Bulk batches submitted, by outcome",
		}, []string{"outcome"}),
		WriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cpm_repository_write_duration_seconds",
			Help:    "Duration of Write and WriteBulk calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"path"}),
	}
}

// ObserveChunk records one transaction chunk outcome.
func (m *Metrics) ObserveChunk(outcome string) {
	if m == nil {
		return
	}
	m.Chunks.WithLabelValues(outcome).Inc()
}

// AddOperations records committed operations of one kind.
func (m *Metrics) AddOperations(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Operations.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncrementBulkRetry() {
	if m == nil {
		return
	}
	m.BulkRetries.Inc()
}

func (m *Metrics) ObserveBulkBatch(outcome string) {
	if m == nil {
		return
	}
	m.BulkBatches.WithLabelValues(outcome).Inc()
}

// ObserveWrite records the duration of a write path ("transact" or "bulk").
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveWrite(path string, start time.Time) {
	if m == nil {
		return
	}
	m.WriteDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
