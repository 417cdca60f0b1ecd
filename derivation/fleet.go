package derivation

import (
	"sort"
	"time"

	"load_cell_report/models"
)

// CalibrationSource resolves an instrument id to its calibration record
type CalibrationSource interface {
	Lookup(instrumentID string) (models.CalibrationRecord, error)
}

// DeriveSeries resolves the series' calibration record and derives it
func DeriveSeries(name string, series models.ReadingSeries, source CalibrationSource, opts Options) (*Result, error) {
	instrumentID, err := series.InstrumentID()
	if err != nil {
		return nil, err
	}
	cal, err := source.Lookup(instrumentID)
	if err != nil {
		return nil, err
	}
	return Derive(name, series, cal, opts)
}

// Percentage series used for fleet-wide comparison
const (
	MetricReportedPctBaseline         = "reported_pct_baseline"
	MetricCheckLoadPctBaseline        = "checkload_pct_baseline"
	MetricTempCorrectedPctBaseline    = "temp_corrected_pct_baseline"
	MetricTempCorrectedPctCalibration = "temp_corrected_pct_calibration"
)

// FleetMetrics lists the fleet metrics in chart order
var FleetMetrics = []string{
	MetricReportedPctBaseline,
	MetricCheckLoadPctBaseline,
	MetricTempCorrectedPctBaseline,
	MetricTempCorrectedPctCalibration,
}

// Point is one sample of a time series
type Point struct {
	At    time.Time
	Value float64
}

// SeriesPoints is one series' samples for a single fleet metric
type SeriesPoints struct {
	Name   string
	Points []Point
}

// Fleet holds, for each fleet metric, every series' samples ordered by name
type Fleet map[string][]SeriesPoints

// MetricValue extracts a fleet metric from a derived reading
func MetricValue(metric string, d models.DerivedReading) float64 {
	switch metric {
	case MetricReportedPctBaseline:
		return d.ReportedPctBaseline
	case MetricCheckLoadPctBaseline:
		return d.CheckLoadPctBaseline
	case MetricTempCorrectedPctBaseline:
		return d.TempCorrectedPctBaseline
	case MetricTempCorrectedPctCalibration:
		return d.TempCorrectedPctCalibration
	}
	return 0
}

// BuildFleet collects the four percentage series of every result, keyed by
// metric and ordered by series name
func BuildFleet(results []*Result) Fleet {
	ordered := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	fleet := make(Fleet, len(FleetMetrics))
	for _, metric := range FleetMetrics {
		series := make([]SeriesPoints, 0, len(ordered))
		for _, r := range ordered {
			points := make([]Point, len(r.Readings))
			for i, d := range r.Readings {
				points[i] = Point{At: d.TakenOn, Value: MetricValue(metric, d)}
			}
			series = append(series, SeriesPoints{Name: r.Name, Points: points})
		}
		fleet[metric] = series
	}
	return fleet
}
