package derivation

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"load_cell_report/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testCalibration() models.CalibrationRecord {
	return models.CalibrationRecord{
		InstrumentID:        "LC-001",
		GaugeFactor:         2.0,
		RegressionNoLoad:    100,
		InstallTemp:         20,
		Baseline:            500,
		CalibrationBaseline: 600,
	}
}

func reading(hours int, temperature float64) models.Reading {
	return models.Reading{
		TakenOn:        day0.Add(time.Duration(hours) * time.Hour),
		InstrumentID:   "LC-001",
		Load:           95,
		ReadingAverage: 150,
		Temperature:    temperature,
	}
}

type registryStub map[string]models.CalibrationRecord

func (r registryStub) Lookup(id string) (models.CalibrationRecord, error) {
	rec, ok := r[id]
	if !ok {
		return models.CalibrationRecord{}, models.NewNotFoundError(id)
	}
	return rec, nil
}

func TestDeriveReading_WorkedExample(t *testing.T) {
	d := DeriveReading(models.Reading{
		TakenOn:        day0,
		InstrumentID:   "LC-001",
		Load:           95,
		ReadingAverage: 150,
		Temperature:    18,
	}, testCalibration())

	assert.InDelta(t, 0.1, d.CheckLoad, 1e-12)
	assert.InDelta(t, 0.096, d.TempCorrectedLoad, 1e-12)
	assert.InDelta(t, 94.9, d.Delta, 1e-12)
	assert.Equal(t, -2.0, d.TempDiff)
	assert.True(t, d.TempFault)
	assert.False(t, d.Subzero)
	assert.InDelta(t, 19.0, d.ReportedPctBaseline, 1e-12)
	assert.InDelta(t, 0.02, d.CheckLoadPctBaseline, 1e-12)
	assert.InDelta(t, 0.0192, d.TempCorrectedPctBaseline, 1e-12)
	assert.InDelta(t, 0.016, d.TempCorrectedPctCalibration, 1e-12)
}

func TestDeriveReading_Deterministic(t *testing.T) {
	r := reading(0, 7.3)
	cal := testCalibration()
	a := DeriveReading(r, cal)
	b := DeriveReading(r, cal)
	assert.Equal(t, a, b)
}

func TestDeriveReading_Flags(t *testing.T) {
	cal := testCalibration()
	for _, temp := range []float64{-5, -1.0001, -1, -0.5, 0, 19.99, 20, 25} {
		d := DeriveReading(reading(0, temp), cal)
		assert.Equal(t, temp-cal.InstallTemp < 0, d.TempFault, "temp %v", temp)
		assert.Equal(t, temp < -1, d.Subzero, "temp %v", temp)
	}
}

func TestBuildIntervals_OnePerFlaggedReading(t *testing.T) {
	series := models.ReadingSeries{
		reading(0, 18),
		reading(6, 19),
		reading(12, 25),
		reading(18, 10),
		reading(30, 30),
		reading(36, 5),
	}
	result, err := Derive("cell_001", series, testCalibration(), Options{})
	require.NoError(t, err)

	require.Len(t, result.TempFault, 4)
	assert.Equal(t, models.AnomalyInterval{Kind: models.AnomalyTempFault, Start: series[0].TakenOn, End: series[1].TakenOn}, result.TempFault[0])
	assert.Equal(t, models.AnomalyInterval{Kind: models.AnomalyTempFault, Start: series[1].TakenOn, End: series[2].TakenOn}, result.TempFault[1])
	assert.Equal(t, series[4].TakenOn, result.TempFault[2].End)

	last := result.TempFault[3]
	assert.Equal(t, series[5].TakenOn, last.Start)
	assert.Equal(t, SentinelWidth, last.Duration())

	assert.Empty(t, result.Subzero)
	assert.Equal(t, 4, result.Summary.TempFaultCount)
}

func TestBuildIntervals_CountMatchesFlags(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	series := make(models.ReadingSeries, 200)
	for i := range series {
		series[i] = reading(i, rng.Float64()*40-15)
	}
	result, err := Derive("cell_001", series, testCalibration(), Options{})
	require.NoError(t, err)

	var faults, subzero int
	for _, d := range result.Readings {
		if d.TempFault {
			faults++
		}
		if d.Subzero {
			subzero++
		}
	}
	assert.Len(t, result.TempFault, faults)
	assert.Len(t, result.Subzero, subzero)
	assert.Equal(t, subzero, result.Summary.SubzeroCount)
}

func TestDerive_SortsWithoutMutatingInput(t *testing.T) {
	sorted := models.ReadingSeries{reading(0, -3), reading(1, 22), reading(2, -2), reading(3, 21), reading(4, -4)}
	shuffled := models.ReadingSeries{sorted[3], sorted[0], sorted[4], sorted[2], sorted[1]}
	before := append(models.ReadingSeries(nil), shuffled...)

	fromSorted, err := Derive("cell_001", sorted, testCalibration(), Options{})
	require.NoError(t, err)
	fromShuffled, err := Derive("cell_001", shuffled, testCalibration(), Options{})
	require.NoError(t, err)

	assert.Equal(t, fromSorted, fromShuffled)
	assert.Equal(t, before, shuffled)
	assert.Equal(t, day0, fromShuffled.Summary.FirstTakenOn)
	assert.Equal(t, day0.Add(4*time.Hour), fromShuffled.Summary.LastTakenOn)
}

func TestDerive_MergeAdjacent(t *testing.T) {
	series := models.ReadingSeries{reading(0, -3), reading(1, -2), reading(2, 25), reading(3, -4), reading(4, -5)}
	result, err := Derive("cell_001", series, testCalibration(), Options{MergeAdjacent: true})
	require.NoError(t, err)

	require.Len(t, result.Subzero, 2)
	assert.Equal(t, day0, result.Subzero[0].Start)
	assert.Equal(t, day0.Add(2*time.Hour), result.Subzero[0].End)
	assert.Equal(t, day0.Add(3*time.Hour), result.Subzero[1].Start)
	assert.Equal(t, day0.Add(4*time.Hour).Add(SentinelWidth), result.Subzero[1].End)
}

func TestMergeIntervals_Empty(t *testing.T) {
	assert.Nil(t, MergeIntervals(nil))
}

func TestDerive_ZeroBaseline(t *testing.T) {
	cal := testCalibration()
	cal.Baseline = 0
	_, err := Derive("cell_001", models.ReadingSeries{reading(0, 18)}, cal, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidCalibration))

	cal = testCalibration()
	cal.CalibrationBaseline = 0
	_, err = Derive("cell_001", models.ReadingSeries{reading(0, 18)}, cal, Options{})
	assert.True(t, errors.Is(err, models.ErrInvalidCalibration))
}

func TestDerive_MixedInstrumentIDs(t *testing.T) {
	other := reading(1, 18)
	other.InstrumentID = "LC-002"
	_, err := Derive("cell_001", models.ReadingSeries{reading(0, 18), other}, testCalibration(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
}

func TestDerive_CalibrationMismatch(t *testing.T) {
	cal := testCalibration()
	cal.InstrumentID = "LC-002"
	_, err := Derive("cell_001", models.ReadingSeries{reading(0, 18)}, cal, Options{})
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
}

func TestDeriveSeries_MissingCalibration(t *testing.T) {
	source := registryStub{"LC-001": testCalibration()}

	first, err := DeriveSeries("cell_001", models.ReadingSeries{reading(0, 18)}, source, Options{})
	require.NoError(t, err)
	snapshot := *first

	orphan := reading(0, 18)
	orphan.InstrumentID = "LC-404"
	_, err = DeriveSeries("cell_404", models.ReadingSeries{orphan}, source, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	assert.Equal(t, snapshot, *first)
}

func TestBuildFleet(t *testing.T) {
	source := registryStub{"LC-001": testCalibration()}
	b, err := DeriveSeries("cell_b", models.ReadingSeries{reading(1, 18), reading(0, 18)}, source, Options{})
	require.NoError(t, err)
	a, err := DeriveSeries("cell_a", models.ReadingSeries{reading(0, 18)}, source, Options{})
	require.NoError(t, err)

	fleet := BuildFleet([]*Result{b, nil, a})
	require.Len(t, fleet, len(FleetMetrics))
	for _, metric := range FleetMetrics {
		series := fleet[metric]
		require.Len(t, series, 2, metric)
		assert.Equal(t, "cell_a", series[0].Name)
		assert.Equal(t, "cell_b", series[1].Name)
		assert.Len(t, series[1].Points, 2)
		assert.Equal(t, day0, series[1].Points[0].At)
	}
	assert.InDelta(t, 19.0, fleet[MetricReportedPctBaseline][0].Points[0].Value, 1e-12)
	assert.InDelta(t, 0.016, fleet[MetricTempCorrectedPctCalibration][0].Points[0].Value, 1e-12)
}
