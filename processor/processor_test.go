package processor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"load_cell_report/calibration"
	"load_cell_report/derivation"
	"load_cell_report/metrics"
	"load_cell_report/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "taken_on,INSTRUMENT ID,Load,Reading_Ave,Temperature\n"

type fakeExporter struct {
	mu     sync.Mutex
	series []string
	fleet  derivation.Fleet
}

func (f *fakeExporter) ExportSeries(r *derivation.Result) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = append(f.series, r.Name)
	return []string{r.Name + " Load.pdf", r.Name + " Percent.pdf"}, nil
}

func (f *fakeExporter) ExportFleet(fleet derivation.Fleet) ([]string, error) {
	f.fleet = fleet
	return []string{"ADAS_loads_vs_baseline.pdf"}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	began    string
	saved    map[string]int
	finished []int
}

func (f *fakeStore) BeginRun(runID string, _ time.Time) error {
	f.began = runID
	f.saved = map[string]int{}
	return nil
}

func (f *fakeStore) SaveResult(_ string, r *derivation.Result) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[r.Name] = len(r.Readings)
	return len(r.Readings), nil
}

func (f *fakeStore) FinishRun(_ string, _ time.Time, total, failed, skipped, stored int) error {
	f.finished = []int{total, failed, skipped, stored}
	return nil
}

func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func testRegistry(t *testing.T) *calibration.Registry {
	t.Helper()
	registry, err := calibration.NewRegistry([]models.CalibrationRecord{
		{InstrumentID: "LC-001", GaugeFactor: 2, RegressionNoLoad: 100, InstallTemp: 20, Baseline: 500, CalibrationBaseline: 600},
		{InstrumentID: "LC-002", GaugeFactor: 1.5, RegressionNoLoad: 80, InstallTemp: 15, Baseline: 450, CalibrationBaseline: 470},
		{InstrumentID: "LC-003", GaugeFactor: 1.5, RegressionNoLoad: 80, InstallTemp: 15, Baseline: 0, CalibrationBaseline: 470},
	})
	require.NoError(t, err)
	return registry
}

func TestRun_AllSeries(t *testing.T) {
	dir := writeFixtures(t, map[string]string{
		"anchor_001.csv": header +
			"2024-01-02 00:00:00,LC-001,95,150,18\n" +
			"2024-01-01 00:00:00,LC-001,96,151,-3\n" +
			"bad-date,LC-001,1,1,1\n",
		"anchor_002.csv": header +
			"2024-01-01 00:00:00,LC-002,400,300,16\n",
	})

	exporter := &fakeExporter{}
	store := &fakeStore{}
	m := metrics.New()
	p := New(testRegistry(t), exporter, Options{WorkerCount: 2, Store: store, Metrics: m})
	p.newRunID = func() string { return "run-1" }

	summary, err := p.Run(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Readings)
	assert.Equal(t, 1, summary.RowsSkipped)
	require.Len(t, summary.Series, 2)
	assert.Equal(t, "anchor_001", summary.Series[0].Name)
	assert.Len(t, summary.Series[0].Result.TempFault, 2)
	assert.Len(t, summary.Series[0].Result.Subzero, 1)
	assert.Equal(t, []string{"ADAS_loads_vs_baseline.pdf"}, summary.FleetCharts)

	assert.ElementsMatch(t, []string{"anchor_001", "anchor_002"}, exporter.series)
	assert.Len(t, exporter.fleet[derivation.MetricReportedPctBaseline], 2)

	assert.Equal(t, "run-1", store.began)
	assert.Equal(t, map[string]int{"anchor_001": 2, "anchor_002": 1}, store.saved)
	assert.Equal(t, []int{2, 0, 0, 3}, store.finished)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeriesProcessed.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReadingsDerived))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ChartsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
}

func TestRun_IsolatesFailingSeries(t *testing.T) {
	dir := writeFixtures(t, map[string]string{
		"anchor_001.csv": header + "2024-01-01 00:00:00,LC-001,95,150,18\n",
		"anchor_404.csv": header + "2024-01-01 00:00:00,LC-404,95,150,18\n",
		"anchor_003.csv": header + "2024-01-01 00:00:00,LC-003,95,150,18\n",
		"mixed_ids.csv": header +
			"2024-01-01 00:00:00,LC-001,95,150,18\n" +
			"2024-01-02 00:00:00,LC-002,95,150,18\n",
	})

	exporter := &fakeExporter{}
	p := New(testRegistry(t), exporter, Options{WorkerCount: 3})

	summary, err := p.Run(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4 series failed")

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)

	byName := map[string]SeriesResult{}
	for _, s := range summary.Series {
		byName[s.Name] = s
	}
	assert.NoError(t, byName["anchor_001"].Error)
	assert.True(t, errors.Is(byName["anchor_404"].Error, models.ErrNotFound))
	assert.True(t, errors.Is(byName["anchor_003"].Error, models.ErrInvalidCalibration))
	assert.True(t, errors.Is(byName["mixed_ids"].Error, models.ErrDataIntegrity))

	// Fleet charts still cover the series that succeeded.
	require.Len(t, exporter.fleet[derivation.MetricCheckLoadPctBaseline], 1)
	assert.Equal(t, "anchor_001", exporter.fleet[derivation.MetricCheckLoadPctBaseline][0].Name)
}

func TestRun_FailFast(t *testing.T) {
	dir := writeFixtures(t, map[string]string{
		"a_404.csv": header + "2024-01-01 00:00:00,LC-404,95,150,18\n",
		"b_001.csv": header + "2024-01-01 00:00:00,LC-001,95,150,18\n",
	})

	exporter := &fakeExporter{}
	store := &fakeStore{}
	p := New(testRegistry(t), exporter, Options{FailFast: true, WorkerCount: 4, Store: store})
	assert.Equal(t, 1, p.opts.WorkerCount)

	summary, err := p.Run(dir)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 series failed, 1 skipped", err.Error())
	assert.Len(t, summary.Series, 1)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []int{2, 1, 1, 0}, store.finished)
	assert.Empty(t, exporter.series)
	assert.Nil(t, exporter.fleet)
}

func TestRun_RejectsSharedChartLabel(t *testing.T) {
	dir := writeFixtures(t, map[string]string{
		"north_001.csv": header + "2024-01-01 00:00:00,LC-001,95,150,18\n",
		"south_001.csv": header + "2024-01-01 00:00:00,LC-001,95,150,18\n",
		"south_002.csv": header + "2024-01-01 00:00:00,LC-002,400,300,16\n",
	})

	exporter := &fakeExporter{}
	p := New(testRegistry(t), exporter, Options{WorkerCount: 3})

	summary, err := p.Run(dir)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 series failed", err.Error())
	assert.Equal(t, 2, summary.Succeeded)

	require.Len(t, summary.Series, 3)
	assert.Equal(t, "north_001", summary.Series[0].Name)
	assert.NoError(t, summary.Series[0].Error)

	rejected := summary.Series[1]
	assert.Equal(t, "south_001", rejected.Name)
	require.Error(t, rejected.Error)
	assert.True(t, errors.Is(rejected.Error, models.ErrDataIntegrity))
	assert.Contains(t, rejected.Error.Error(), `already used by series "north_001"`)
	assert.Empty(t, rejected.Charts)

	assert.ElementsMatch(t, []string{"north_001", "south_002"}, exporter.series)
	assert.Len(t, exporter.fleet[derivation.MetricReportedPctBaseline], 2)
}

func TestRun_NoFiles(t *testing.T) {
	p := New(testRegistry(t), nil, Options{})
	_, err := p.Run(filepath.Join(t.TempDir(), "*.csv"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "no CSV files match"))
}

func TestDisplaySummary(t *testing.T) {
	DisplaySummary(&Summary{
		RunID: "run-1",
		Series: []SeriesResult{
			{FilePath: "a.csv", Result: &derivation.Result{}},
			{FilePath: "b.csv", Error: models.NewNotFoundError("LC-404")},
		},
	})
}
