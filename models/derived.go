package models

import (
	"time"
)

// AnomalyKind names the boolean flag an interval was built from
type AnomalyKind string

const (
	AnomalyTempFault AnomalyKind = "temp_fault"
	AnomalySubzero   AnomalyKind = "subzero"
)

// DerivedReading is a Reading extended with calibrated values and fault flags
type DerivedReading struct {
	Reading

	CheckLoad                   float64 `json:"check_load"`
	Delta                       float64 `json:"delta"`
	TempCorrectedLoad           float64 `json:"temp_corrected_load"`
	ReportedPctBaseline         float64 `json:"reported_pct_baseline"`
	CheckLoadPctBaseline        float64 `json:"checkload_pct_baseline"`
	TempCorrectedPctBaseline    float64 `json:"temp_corrected_pct_baseline"`
	TempCorrectedPctCalibration float64 `json:"temp_corrected_pct_calibration"`
	TempDiff                    float64 `json:"temp_diff"`
	TempFault                   bool    `json:"temp_fault"`
	Subzero                     bool    `json:"subzero"`
}

// AnomalyInterval is the half-open range [Start, End) during which a flag held
type AnomalyInterval struct {
	Kind  AnomalyKind `json:"kind"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
}

// Duration returns End - Start
func (a AnomalyInterval) Duration() time.Duration {
	return a.End.Sub(a.Start)
}
