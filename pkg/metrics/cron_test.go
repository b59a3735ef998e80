package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("ledger-audit", 250*time.Millisecond, nil)
	m.ObserveRun("ledger-audit", time.Second, errors.New("3 findings"))
	m.ObserveRun("", time.Millisecond, nil)
	m.SetFindings("ledger-audit", 3)
	m.IncLockSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	runs := findMetricFamily(mfs, "metaleria_cron_job_runs_total")
	require.NotNil(t, runs)
	assert.Equal(t, float64(1), valueWithLabels(runs, map[string]string{"job": "ledger-audit", "outcome": OutcomeSuccess}))
	assert.Equal(t, float64(1), valueWithLabels(runs, map[string]string{"job": "ledger-audit", "outcome": OutcomeError}))
	assert.Equal(t, float64(1), valueWithLabels(runs, map[string]string{"job": "unknown", "outcome": OutcomeSuccess}))

	duration := findMetricFamily(mfs, "metaleria_cron_job_duration_seconds")
	require.NotNil(t, duration)
	for _, metric := range duration.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{"job": "ledger-audit"}) {
			assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
			assert.InDelta(t, 1.25, metric.GetHistogram().GetSampleSum(), 0.0001)
		}
	}

	lastSuccess := findMetricFamily(mfs, "metaleria_cron_job_last_success_timestamp_seconds")
	require.NotNil(t, lastSuccess)
	assert.Greater(t, valueWithLabels(lastSuccess, map[string]string{"job": "ledger-audit"}), float64(0))

	findings := findMetricFamily(mfs, "metaleria_cron_job_findings")
	require.NotNil(t, findings)
	assert.Equal(t, float64(3), valueWithLabels(findings, map[string]string{"job": "ledger-audit"}))

	skips := findMetricFamily(mfs, "metaleria_cron_cycles_skipped_total")
	require.NotNil(t, skips)
	assert.Equal(t, float64(1), skips.GetMetric()[0].GetCounter().GetValue())
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *CronJobMetrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveRun("job", time.Second, nil)
		nilMetrics.SetFindings("job", 1)
		nilMetrics.IncLockSkipped()

		unregistered := NewCronJobMetrics(nil)
		unregistered.ObserveRun("job", time.Second, errors.New("boom"))
		unregistered.IncLockSkipped()
	})
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// valueWithLabels returns the counter or gauge value of the series matching labels.
func valueWithLabels(mf *dto.MetricFamily, labels map[string]string) float64 {
	for _, metric := range mf.GetMetric() {
		if !matchesLabels(metric.GetLabel(), labels) {
			continue
		}
		if c := metric.GetCounter(); c != nil {
			return c.GetValue()
		}
		return metric.GetGauge().GetValue()
	}
	return -1
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
