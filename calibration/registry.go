// Package calibration loads and indexes the per-instrument constants that the
// derivation engine needs. A Registry is immutable after loading and can be
// shared read-only between workers.
package calibration

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"load_cell_report/logger"
	"load_cell_report/models"

	"gorm.io/gorm"
)

// Reference table columns. The exporting system spells the gauge factor
// column "guage_factor"; the correct spelling is accepted as well.
const (
	ColumnLoadCell            = "load_cell"
	ColumnGaugeFactor         = "guage_factor"
	ColumnGaugeFactorAlt      = "gauge_factor"
	ColumnRegressionNoLoad    = "regression_no_load"
	ColumnInstallTemp         = "install_temp"
	ColumnBaseline            = "baseline"
	ColumnCalibrationBaseline = "calibration_baseline"
)

// Registry indexes calibration records by instrument id
type Registry struct {
	records []models.CalibrationRecord
	byID    map[string]int
}

// NewRegistry builds a registry from records. Duplicate instrument ids are
// rejected rather than resolved by position.
func NewRegistry(records []models.CalibrationRecord) (*Registry, error) {
	r := &Registry{
		records: make([]models.CalibrationRecord, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}

	for i, rec := range records {
		id := strings.TrimSpace(rec.InstrumentID)
		if id == "" {
			return nil, models.NewDataIntegrityError("calibration", "record %d has an empty load_cell", i+1)
		}
		if _, exists := r.byID[id]; exists {
			return nil, models.NewDataIntegrityError("calibration", "duplicate record for load_cell %q", id)
		}
		rec.InstrumentID = id
		r.byID[id] = len(r.records)
		r.records = append(r.records, rec)
	}

	return r, nil
}

// LoadCSV reads the reference table from a CSV file
func LoadCSV(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file %s: %w", path, err)
	}

	logger.Debugf("Loaded %d calibration record(s) from %s\n", len(records), path)
	return NewRegistry(records)
}

// ReadCSV parses calibration records from a reference table stream
func ReadCSV(r io.Reader) ([]models.CalibrationRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, models.NewDataIntegrityError("calibration", "reference table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns[ColumnGaugeFactor]; !ok {
		if idx, alt := columns[ColumnGaugeFactorAlt]; alt {
			columns[ColumnGaugeFactor] = idx
		}
	}

	required := []string{
		ColumnLoadCell, ColumnGaugeFactor, ColumnRegressionNoLoad,
		ColumnInstallTemp, ColumnBaseline, ColumnCalibrationBaseline,
	}
	for _, col := range required {
		if _, ok := columns[col]; !ok {
			return nil, models.NewDataIntegrityError("calibration", "missing required column %q", col)
		}
	}

	var records []models.CalibrationRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, columns)
		if err != nil {
			return nil, models.NewDataIntegrityError("calibration", "line %d: %v", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRow(row []string, columns map[string]int) (models.CalibrationRecord, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	number := func(name string) (float64, error) {
		raw := field(name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("non-finite %s %q", name, raw)
		}
		return v, nil
	}

	rec := models.CalibrationRecord{InstrumentID: field(ColumnLoadCell)}
	var err error
	if rec.GaugeFactor, err = number(ColumnGaugeFactor); err != nil {
		return rec, err
	}
	if rec.RegressionNoLoad, err = number(ColumnRegressionNoLoad); err != nil {
		return rec, err
	}
	if rec.InstallTemp, err = number(ColumnInstallTemp); err != nil {
		return rec, err
	}
	if rec.Baseline, err = number(ColumnBaseline); err != nil {
		return rec, err
	}
	if rec.CalibrationBaseline, err = number(ColumnCalibrationBaseline); err != nil {
		return rec, err
	}
	return rec, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// LoadFromDB reads every calibration record stored in the database
func LoadFromDB(db *gorm.DB) (*Registry, error) {
	var records []models.CalibrationRecord
	if err := db.Order("instrument_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query calibration records: %w", err)
	}
	return NewRegistry(records)
}

// Lookup returns the calibration record for an instrument
func (r *Registry) Lookup(instrumentID string) (models.CalibrationRecord, error) {
	idx, ok := r.byID[strings.TrimSpace(instrumentID)]
	if !ok {
		return models.CalibrationRecord{}, models.NewNotFoundError(instrumentID)
	}
	return r.records[idx], nil
}

// Records returns the records in load order
func (r *Registry) Records() []models.CalibrationRecord {
	out := make([]models.CalibrationRecord, len(r.records))
	copy(out, r.records)
	return out
}

// IDs returns the known instrument ids, sorted
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records
func (r *Registry) Len() int {
	return len(r.records)
}
