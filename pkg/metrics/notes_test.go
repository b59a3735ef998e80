package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNoteMetrics(reg)

	m.Observe("approve", OutcomeSuccess, 40*time.Millisecond)
	m.Observe("approve", OutcomeSuccess, 10*time.Millisecond)
	m.Observe("approve", OutcomeRejected, 5*time.Millisecond)
	m.AddStock("in", 95)
	m.AddStock("out", 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	ops := findMetricFamily(mfs, "metaleria_note_operations_total")
	require.NotNil(t, ops)
	assert.Equal(t, float64(2), valueWithLabels(ops, map[string]string{"operation": "approve", "outcome": OutcomeSuccess}))
	assert.Equal(t, float64(1), valueWithLabels(ops, map[string]string{"operation": "approve", "outcome": OutcomeRejected}))

	stock := findMetricFamily(mfs, "metaleria_inventory_moved_kg_total")
	require.NotNil(t, stock)
	assert.Equal(t, float64(95), valueWithLabels(stock, map[string]string{"direction": "in"}))
	assert.Equal(t, float64(-1), valueWithLabels(stock, map[string]string{"direction": "out"}), "zero movements must not create a series")

	duration := findMetricFamily(mfs, "metaleria_note_operation_duration_seconds")
	require.NotNil(t, duration)
	require.Len(t, duration.GetMetric(), 1)
	assert.Equal(t, uint64(3), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilNoteMetricsIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		var m *NoteMetrics
		m.Observe("approve", OutcomeError, time.Second)
		m.AddStock("in", 1)

		unregistered := NewNoteMetrics(nil)
		unregistered.Observe("approve", OutcomeError, time.Second)
	})
}
