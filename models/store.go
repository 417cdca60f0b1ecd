package models

import (
	"time"
)

// Run records one batch execution
type Run struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	SeriesTotal    int        `json:"series_total"`
	SeriesFailed   int        `json:"series_failed"`
	SeriesSkipped  int        `json:"series_skipped"`
	ReadingsStored int        `json:"readings_stored"`
}

// TableName customizes the table name
func (Run) TableName() string {
	return "runs"
}

// DerivedReadingRow is the persisted form of a DerivedReading
type DerivedReadingRow struct {
	ID                          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID                       string    `gorm:"index;not null;size:36" json:"run_id"`
	SeriesName                  string    `gorm:"index:idx_series_taken_on;not null;size:255" json:"series_name"`
	InstrumentID                string    `gorm:"not null;size:255" json:"instrument_id"`
	TakenOn                     time.Time `gorm:"index:idx_series_taken_on;not null" json:"taken_on"`
	Load                        float64   `json:"load"`
	ReadingAverage              float64   `json:"reading_average"`
	Temperature                 float64   `json:"temperature"`
	CheckLoad                   float64   `json:"check_load"`
	Delta                       float64   `json:"delta"`
	TempCorrectedLoad           float64   `json:"temp_corrected_load"`
	ReportedPctBaseline         float64   `json:"reported_pct_baseline"`
	CheckLoadPctBaseline        float64   `json:"checkload_pct_baseline"`
	TempCorrectedPctBaseline    float64   `json:"temp_corrected_pct_baseline"`
	TempCorrectedPctCalibration float64   `json:"temp_corrected_pct_calibration"`
	TempDiff                    float64   `json:"temp_diff"`
	TempFault                   bool      `json:"temp_fault"`
	Subzero                     bool      `json:"subzero"`
}

// TableName customizes the table name
func (DerivedReadingRow) TableName() string {
	return "derived_readings"
}

// NewDerivedReadingRow flattens a DerivedReading for storage
func NewDerivedReadingRow(runID, seriesName string, d DerivedReading) DerivedReadingRow {
	return DerivedReadingRow{
		RunID:                       runID,
		SeriesName:                  seriesName,
		InstrumentID:                d.InstrumentID,
		TakenOn:                     d.TakenOn,
		Load:                        d.Load,
		ReadingAverage:              d.ReadingAverage,
		Temperature:                 d.Temperature,
		CheckLoad:                   d.CheckLoad,
		Delta:                       d.Delta,
		TempCorrectedLoad:           d.TempCorrectedLoad,
		ReportedPctBaseline:         d.ReportedPctBaseline,
		CheckLoadPctBaseline:        d.CheckLoadPctBaseline,
		TempCorrectedPctBaseline:    d.TempCorrectedPctBaseline,
		TempCorrectedPctCalibration: d.TempCorrectedPctCalibration,
		TempDiff:                    d.TempDiff,
		TempFault:                   d.TempFault,
		Subzero:                     d.Subzero,
	}
}

// AnomalyIntervalRow is the persisted form of an AnomalyInterval
type AnomalyIntervalRow struct {
	ID         uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string      `gorm:"index;not null;size:36" json:"run_id"`
	SeriesName string      `gorm:"not null;size:255" json:"series_name"`
	Kind       AnomalyKind `gorm:"not null;size:32" json:"kind"`
	StartsAt   time.Time   `gorm:"not null" json:"starts_at"`
	EndsAt     time.Time   `gorm:"not null" json:"ends_at"`
}

// TableName customizes the table name
func (AnomalyIntervalRow) TableName() string {
	return "anomaly_intervals"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Run{},
		&CalibrationRecord{},
		&DerivedReadingRow{},
		&AnomalyIntervalRow{},
	}
}
