package calibration

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"load_cell_report/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceTable = `load_cell,guage_factor,regression_no_load,install_temp,baseline,calibration_baseline
LC-001,2.0,100,20,500,600
LC-002,1.5,80,18.5,450,470
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(referenceTable))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.CalibrationRecord{
		InstrumentID:        "LC-001",
		GaugeFactor:         2.0,
		RegressionNoLoad:    100,
		InstallTemp:         20,
		Baseline:            500,
		CalibrationBaseline: 600,
	}, records[0])
	assert.Equal(t, 18.5, records[1].InstallTemp)
}

func TestReadCSV_AcceptsCorrectSpellingAndColumnOrder(t *testing.T) {
	table := "Baseline,Load_Cell,Gauge_Factor,Regression_No_Load,Install_Temp,Calibration_Baseline\n" +
		"500,LC-009,2.5,90,21,550\n\n"
	records, err := ReadCSV(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "LC-009", records[0].InstrumentID)
	assert.Equal(t, 2.5, records[0].GaugeFactor)
	assert.Equal(t, 500.0, records[0].Baseline)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("load_cell,guage_factor\nLC-001,2.0\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
}

func TestReadCSV_InvalidNumber(t *testing.T) {
	table := "load_cell,guage_factor,regression_no_load,install_temp,baseline,calibration_baseline\n" +
		"LC-001,abc,100,20,500,600\n"
	_, err := ReadCSV(strings.NewReader(table))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCSV_NonFiniteNumber(t *testing.T) {
	table := "load_cell,guage_factor,regression_no_load,install_temp,baseline,calibration_baseline\n" +
		"LC-001,2.0,100,20,NaN,600\n"
	_, err := ReadCSV(strings.NewReader(table))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
	assert.Contains(t, err.Error(), "non-finite baseline")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]models.CalibrationRecord{
		{InstrumentID: "LC-001", Baseline: 1, CalibrationBaseline: 1},
		{InstrumentID: "LC-001", Baseline: 2, CalibrationBaseline: 2},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataIntegrity))
}

func TestLookup(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(referenceTable))
	require.NoError(t, err)
	registry, err := NewRegistry(records)
	require.NoError(t, err)

	rec, err := registry.Lookup("LC-002")
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.GaugeFactor)

	rec, err = registry.Lookup(" LC-001 ")
	require.NoError(t, err)
	assert.Equal(t, "LC-001", rec.InstrumentID)

	_, err = registry.Lookup("LC-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Contains(t, err.Error(), "LC-404")

	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, []string{"LC-001", "LC-002"}, registry.IDs())
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadcelldata.csv")
	require.NoError(t, os.WriteFile(path, []byte(referenceTable), 0644))

	registry, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	records := registry.Records()
	records[0].GaugeFactor = 99
	rec, err := registry.Lookup("LC-001")
	require.NoError(t, err)
	assert.Equal(t, 2.0, rec.GaugeFactor)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
