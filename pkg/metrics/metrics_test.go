package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	m, err := vec.GetMetricWith(labels)
	require.NoError(t, err)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetCounter().GetValue()
}

func TestObserveHubCallIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHubCall("read", "getTag")
	m.ObserveHubCall("read", "getTag")

	assert.Equal(t, float64(2), counterValue(t, m.HubCalls, prometheus.Labels{"phase": "read", "method": "getTag"}))
}

func TestObserveChangeIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveChange("create")

	assert.Equal(t, float64(1), counterValue(t, m.ChangesApplied, prometheus.Labels{"kind": "create"}))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	assert.NotPanics(t, func() {
		m.ObserveHubCall("read", "getTag")
		m.ObserveChange("create")
		stop := m.PhaseTimer("solving")
		stop()
	})
}

func TestPhaseTimerRecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	stop := m.PhaseTimer("solving")
	stop()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "koji_habitude_workflow_phase_duration_seconds" {
			found = true
			require.Len(t, mf.Metric, 1)
			assert.Equal(t, uint64(1), mf.Metric[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "expected the phase duration histogram to be registered")
}
