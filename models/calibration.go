package models

import (
	"time"
)

// CalibrationRecord holds the per-instrument constants used to derive loads
type CalibrationRecord struct {
	InstrumentID        string    `gorm:"primaryKey;size:255" json:"instrument_id"`
	GaugeFactor         float64   `gorm:"not null" json:"gauge_factor"`
	RegressionNoLoad    float64   `gorm:"not null" json:"regression_no_load"`
	InstallTemp         float64   `gorm:"not null" json:"install_temp"`
	Baseline            float64   `gorm:"not null" json:"baseline"`
	CalibrationBaseline float64   `gorm:"not null" json:"calibration_baseline"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName customizes the table name
func (CalibrationRecord) TableName() string {
	return "calibration_records"
}

// Validate reports whether the record can be used as a divisor source
func (c CalibrationRecord) Validate() error {
	if c.Baseline == 0 {
		return NewInvalidCalibrationError(c.InstrumentID, "baseline is zero")
	}
	if c.CalibrationBaseline == 0 {
		return NewInvalidCalibrationError(c.InstrumentID, "calibration_baseline is zero")
	}
	return nil
}
