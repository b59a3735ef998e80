package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NoteMetrics records lifecycle operations executed against notes.
type NoteMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	stockKg    *prometheus.CounterVec
}

// NewNoteMetrics registers the note lifecycle metrics on the provided registerer.
func NewNoteMetrics(reg prometheus.Registerer) *NoteMetrics {
	if reg == nil {
		return &NoteMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "note_operations_total",
		Help:      "Note lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "note_operation_duration_seconds",
		Help:      "Duration of note lifecycle operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	stockKg := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_moved_kg_total",
		Help:      "Kilograms moved through inventory by direction.",
	}, []string{"direction"})
	reg.MustRegister(operations, duration, stockKg)
	return &NoteMetrics{
		operations: operations,
		duration:   duration,
		stockKg:    stockKg,
	}
}

// Observe records the outcome and duration of one operation.
func (m *NoteMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// AddStock accumulates kilograms moved in ("in") or out ("out") of inventory.
func (m *NoteMetrics) AddStock(direction string, kg float64) {
	if m == nil || m.stockKg == nil || kg <= 0 {
		return
	}
	m.stockKg.WithLabelValues(normalizeLabel(direction)).Add(kg)
}
