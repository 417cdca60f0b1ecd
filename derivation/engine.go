// Package derivation turns a raw load cell series and its calibration record
// into calibrated, temperature-corrected readings and the anomaly intervals
// used to shade charts.
//
// All functions are pure: the same series and record always produce the same
// output, so series can be derived concurrently.
package derivation

import (
	"math"
	"time"

	"load_cell_report/models"
)

// SentinelWidth is the width of an interval opened by the last reading of a
// series, which has no successor to close it.
const SentinelWidth = 24 * time.Hour

// SubzeroThreshold is the temperature below which a reading is flagged subzero
const SubzeroThreshold = -1.0

// Options tune interval construction
type Options struct {
	// MergeAdjacent collapses abutting intervals of the same kind into one.
	MergeAdjacent bool
}

// Summary holds per-series figures reported after derivation
type Summary struct {
	Readings       int
	FirstTakenOn   time.Time
	LastTakenOn    time.Time
	MaxAbsDelta    float64
	TempFaultCount int
	SubzeroCount   int
}

// Result is the derived form of one series
type Result struct {
	Name         string
	InstrumentID string
	Calibration  models.CalibrationRecord
	Readings     []models.DerivedReading
	TempFault    []models.AnomalyInterval
	Subzero      []models.AnomalyInterval
	Summary      Summary
}

// Derive computes derived readings and anomaly intervals for a series.
// The series is sorted by TakenOn first; the input slice is not modified.
func Derive(name string, series models.ReadingSeries, cal models.CalibrationRecord, opts Options) (*Result, error) {
	instrumentID, err := series.InstrumentID()
	if err != nil {
		return nil, err
	}
	if instrumentID != cal.InstrumentID {
		return nil, models.NewDataIntegrityError(name,
			"series instrument %q does not match calibration record %q", instrumentID, cal.InstrumentID)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	sorted := series.Sorted()
	readings := make([]models.DerivedReading, len(sorted))
	for i, r := range sorted {
		readings[i] = DeriveReading(r, cal)
	}

	tempFault := BuildIntervals(readings, models.AnomalyTempFault, func(d models.DerivedReading) bool { return d.TempFault })
	subzero := BuildIntervals(readings, models.AnomalySubzero, func(d models.DerivedReading) bool { return d.Subzero })
	if opts.MergeAdjacent {
		tempFault = MergeIntervals(tempFault)
		subzero = MergeIntervals(subzero)
	}

	return &Result{
		Name:         name,
		InstrumentID: instrumentID,
		Calibration:  cal,
		Readings:     readings,
		TempFault:    tempFault,
		Subzero:      subzero,
		Summary:      summarize(readings),
	}, nil
}

// DeriveReading applies the calibration formulas to a single reading.
// The caller is responsible for rejecting zero baselines.
func DeriveReading(r models.Reading, cal models.CalibrationRecord) models.DerivedReading {
	checkLoad := cal.GaugeFactor * (r.ReadingAverage - cal.RegressionNoLoad) * 0.001
	tempCorrected := cal.GaugeFactor * (r.ReadingAverage - cal.RegressionNoLoad + r.Temperature - cal.InstallTemp) * 0.001
	tempDiff := r.Temperature - cal.InstallTemp

	return models.DerivedReading{
		Reading:                     r,
		CheckLoad:                   checkLoad,
		Delta:                       r.Load - checkLoad,
		TempCorrectedLoad:           tempCorrected,
		ReportedPctBaseline:         r.Load / cal.Baseline * 100,
		CheckLoadPctBaseline:        checkLoad / cal.Baseline * 100,
		TempCorrectedPctBaseline:    tempCorrected / cal.Baseline * 100,
		TempCorrectedPctCalibration: tempCorrected / cal.CalibrationBaseline * 100,
		TempDiff:                    tempDiff,
		TempFault:                   tempDiff < 0,
		Subzero:                     r.Temperature < SubzeroThreshold,
	}
}

// BuildIntervals emits one interval per flagged reading: from its TakenOn to
// the next reading's TakenOn, or SentinelWidth later for the last reading.
// readings must already be sorted by TakenOn.
func BuildIntervals(readings []models.DerivedReading, kind models.AnomalyKind, flag func(models.DerivedReading) bool) []models.AnomalyInterval {
	var intervals []models.AnomalyInterval
	for i, r := range readings {
		if !flag(r) {
			continue
		}
		end := r.TakenOn.Add(SentinelWidth)
		if i+1 < len(readings) {
			end = readings[i+1].TakenOn
		}
		intervals = append(intervals, models.AnomalyInterval{
			Kind:  kind,
			Start: r.TakenOn,
			End:   end,
		})
	}
	return intervals
}

// MergeIntervals joins intervals where one ends exactly where the next
// starts. Input must be ordered by Start.
func MergeIntervals(intervals []models.AnomalyInterval) []models.AnomalyInterval {
	if len(intervals) == 0 {
		return nil
	}
	merged := []models.AnomalyInterval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.Kind == last.Kind && !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func summarize(readings []models.DerivedReading) Summary {
	s := Summary{Readings: len(readings)}
	if len(readings) == 0 {
		return s
	}
	s.FirstTakenOn = readings[0].TakenOn
	s.LastTakenOn = readings[len(readings)-1].TakenOn
	for _, r := range readings {
		s.MaxAbsDelta = math.Max(s.MaxAbsDelta, math.Abs(r.Delta))
		if r.TempFault {
			s.TempFaultCount++
		}
		if r.Subzero {
			s.SubzeroCount++
		}
	}
	return s
}
