package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveSeries(true, 20*time.Millisecond)
	m.ObserveSeries(true, 30*time.Millisecond)
	m.ObserveSeries(false, time.Millisecond)
	m.Intervals.WithLabelValues("subzero").Add(3)
	m.Finish(false, time.Unix(1700000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeriesProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SeriesProcessed.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Intervals.WithLabelValues("subzero")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunSuccess))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunSeconds))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ReadingsDerived.Add(42)
	m.Finish(true, time.Now())

	path := filepath.Join(t.TempDir(), "load_cell_report.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "load_cell_report_readings_derived_total 42")
	assert.Contains(t, string(data), "load_cell_report_last_run_success 1")
}
