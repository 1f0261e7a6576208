package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLabels_toPrometheusLabels(t *testing.T) {
	tests := []struct {
		name     string
		labels   Labels
		expected prometheus.Labels
	}{
		{
			name:     "empty labels",
			labels:   Labels{},
			expected: prometheus.Labels{},
		},
		{
			name:   "all labels set",
			labels: Labels{Environment: "production", Instance: "consumer-0"},
			expected: prometheus.Labels{
				"environment":   "production",
				"instance_name": "consumer-0",
			},
		},
		{
			name:     "partial labels",
			labels:   Labels{Environment: "staging"},
			expected: prometheus.Labels{"environment": "staging"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.labels.toPrometheusLabels())
		})
	}
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := New(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Gauges and plain counters show up before any observation.
	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, metricFamilies)
}

func TestNew_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestNewWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewWithLabels(reg, Labels{Environment: "test"})
	require.NoError(t, err)
	m.IncDequeueErrors()

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() != "keydb_queue_dequeue_errors_total" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		labels := mf.GetMetric()[0].GetLabel()
		require.Len(t, labels, 1)
		require.Equal(t, "environment", labels[0].GetName())
		require.Equal(t, "test", labels[0].GetValue())
	}
	require.True(t, found)
}

func TestMetrics_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordPublish(nil)
	m.RecordPublish(errors.New("fail"))
	m.RecordEnqueue(nil)
	m.RecordEnqueue(nil)
	m.IncDequeueErrors()
	m.IncActiveLoops()
	m.IncActiveLoops()
	m.DecActiveLoops()
	m.SetSubscriptions(3)
	m.RecordHandled(SourceQueue, nil, 0.01)
	m.RecordHandled(SourceChannel, errors.New("fail"), 0.02)
	m.RecordDeadLetter(nil)
	m.IncShutdownErrors()

	require.InDelta(t, 1, testutil.ToFloat64(m.published.WithLabelValues(StatusSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.published.WithLabelValues(StatusError)), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.enqueued.WithLabelValues(StatusSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.dequeueErrors), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.activeLoops), 0)
	require.InDelta(t, 3, testutil.ToFloat64(m.subscriptions), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.handled.WithLabelValues(SourceQueue, StatusSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.handled.WithLabelValues(SourceChannel, StatusError)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.deadLettered.WithLabelValues(StatusSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.shutdownErrors), 0)
	require.Equal(t, 2, testutil.CollectAndCount(m.handlerDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.RecordPublish(nil)
		m.RecordEnqueue(nil)
		m.IncDequeueErrors()
		m.IncActiveLoops()
		m.DecActiveLoops()
		m.SetSubscriptions(1)
		m.RecordHandled(SourceQueue, nil, 0)
		m.RecordDeadLetter(nil)
		m.IncShutdownErrors()
	})
}
