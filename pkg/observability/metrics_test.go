package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewSweepMetrics(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	m, err := NewSweepMetrics(registry)
	require.NoError(err)

	m.SweepsStarted.Inc()
	m.CandidatesEvaluated.Add(3)
	m.CandidateDuration.Observe(0.01)
	m.BestTotalBadness.Set(0.25)

	require.Equal(1.0, testutil.ToFloat64(m.SweepsStarted))
	require.Equal(3.0, testutil.ToFloat64(m.CandidatesEvaluated))
	require.Equal(0.25, testutil.ToFloat64(m.BestTotalBadness))

	families, err := registry.Gather()
	require.NoError(err)
	require.Len(families, 8)

	// Registering twice on the same registry fails
	_, err = NewSweepMetrics(registry)
	require.Error(err)
}

func TestNewSweepMetricsWithoutRegisterer(t *testing.T) {
	m, err := NewSweepMetrics(nil)
	require.NoError(t, err)
	m.SweepsRejected.Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(m.SweepsRejected))
}
