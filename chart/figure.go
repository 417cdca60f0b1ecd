// Package chart renders derived load cell data as per-instrument and
// fleet-wide charts.
//
// Charts are first described as a Figure, which is independent of the
// output format, then rendered to PDF (gonum/plot) or interactive HTML
// (go-echarts). All styling comes from the Style passed to the Exporter.
package chart

import (
	"image/color"
	"math"
	"time"

	"load_cell_report/derivation"
	"load_cell_report/models"
	"load_cell_report/scanner"
)

// Axis fixes a value axis range. Step of zero lets the renderer pick ticks.
type Axis struct {
	Min  float64
	Max  float64
	Step float64
}

// Style carries every presentation setting used by the renderers
type Style struct {
	// Width and Height are the page size in inches; HTML uses 96 px per inch.
	Width  float64
	Height float64

	// PercentAxis is applied to every percentage chart.
	PercentAxis Axis

	// LoadMargin pads the load chart's value axis around the data.
	LoadMargin float64

	ShadeColor       color.NRGBA
	ShadeColorName   string
	TempFaultOpacity float64
	SubzeroOpacity   float64

	DateFormat string
}

// DefaultStyle returns the standard report styling
func DefaultStyle() Style {
	return Style{
		Width:            11,
		Height:           6,
		PercentAxis:      Axis{Min: 90, Max: 105, Step: 5},
		LoadMargin:       0.01,
		ShadeColor:       color.NRGBA{R: 255, G: 192, B: 203, A: 255},
		ShadeColorName:   "pink",
		TempFaultOpacity: 0.3,
		SubzeroOpacity:   0.6,
		DateFormat:       "2006-01-02",
	}
}

// Trace is one named line on a chart
type Trace struct {
	Name   string
	Points []derivation.Point
}

// Shade is a background band covering [Start, End)
type Shade struct {
	Kind    models.AnomalyKind
	Start   time.Time
	End     time.Time
	Opacity float64
}

// Figure describes one chart independent of its output format
type Figure struct {
	// FileName is the output name without extension.
	FileName string
	Title    string
	XTitle   string
	YTitle   string
	Traces   []Trace
	Shades   []Shade
	YAxis    *Axis
}

// Fleet chart names and titles, in FleetMetrics order
var fleetCharts = map[string]struct{ file, title string }{
	derivation.MetricReportedPctBaseline:         {"ADAS_loads_vs_baseline", "Load as % of Baseline"},
	derivation.MetricCheckLoadPctBaseline:        {"check_vs_baseline", "Check Load vs Baseline"},
	derivation.MetricTempCorrectedPctBaseline:    {"temp_vs_baseline", "Temp Corrected Load vs Baseline"},
	derivation.MetricTempCorrectedPctCalibration: {"temp_vs_calibration", "Temp Corrected Load vs Calibration"},
}

// LoadFigure charts reported, check and temperature-corrected loads
func LoadFigure(r *derivation.Result, style Style) Figure {
	label := scanner.ShortLabel(r.Name)

	fig := Figure{
		FileName: label + " Load",
		Title:    "Load Cell " + label,
		XTitle:   "Date",
		YTitle:   "Load, kips",
		Traces: []Trace{
			trace("Load Reported by ADAS", r.Readings, func(d models.DerivedReading) float64 { return d.Load }),
			trace("Check Load", r.Readings, func(d models.DerivedReading) float64 { return d.CheckLoad }),
			trace("Load Corrected for Temp", r.Readings, func(d models.DerivedReading) float64 { return d.TempCorrectedLoad }),
		},
		Shades: shades(r, style),
	}

	// Axis spans reported and check loads only; the corrected trace may clip.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range r.Readings {
		lo = math.Min(lo, math.Min(d.Load, d.CheckLoad))
		hi = math.Max(hi, math.Max(d.Load, d.CheckLoad))
	}
	if len(r.Readings) > 0 {
		fig.YAxis = &Axis{Min: lo * (1 - style.LoadMargin), Max: hi * (1 + style.LoadMargin)}
	}
	return fig
}

// PercentFigure charts the four percentage series of one instrument
func PercentFigure(r *derivation.Result, style Style) Figure {
	label := scanner.ShortLabel(r.Name)
	axis := style.PercentAxis

	return Figure{
		FileName: label + " Percent",
		Title:    "Load Cell " + label,
		XTitle:   "Date",
		YTitle:   "Percent",
		Traces: []Trace{
			trace("Baseline Load", r.Readings, func(d models.DerivedReading) float64 { return d.ReportedPctBaseline }),
			trace("Check Load", r.Readings, func(d models.DerivedReading) float64 { return d.CheckLoadPctBaseline }),
			trace("Temp Corrected vs Baseline", r.Readings, func(d models.DerivedReading) float64 { return d.TempCorrectedPctBaseline }),
			trace("Temp Corrected vs Calibration", r.Readings, func(d models.DerivedReading) float64 { return d.TempCorrectedPctCalibration }),
		},
		Shades: shades(r, style),
		YAxis:  &axis,
	}
}

// FleetFigures builds the four fleet comparison charts
func FleetFigures(fleet derivation.Fleet, style Style) []Figure {
	figures := make([]Figure, 0, len(derivation.FleetMetrics))
	for _, metric := range derivation.FleetMetrics {
		meta := fleetCharts[metric]
		axis := style.PercentAxis

		fig := Figure{
			FileName: meta.file,
			Title:    meta.title,
			XTitle:   "Date",
			YTitle:   "Percent",
			YAxis:    &axis,
		}
		for _, s := range fleet[metric] {
			fig.Traces = append(fig.Traces, Trace{
				Name:   "Load Cell " + scanner.ShortLabel(s.Name),
				Points: s.Points,
			})
		}
		figures = append(figures, fig)
	}
	return figures
}

func trace(name string, readings []models.DerivedReading, value func(models.DerivedReading) float64) Trace {
	points := make([]derivation.Point, len(readings))
	for i, d := range readings {
		points[i] = derivation.Point{At: d.TakenOn, Value: value(d)}
	}
	return Trace{Name: name, Points: points}
}

func shades(r *derivation.Result, style Style) []Shade {
	out := make([]Shade, 0, len(r.TempFault)+len(r.Subzero))
	for _, iv := range r.TempFault {
		out = append(out, Shade{Kind: iv.Kind, Start: iv.Start, End: iv.End, Opacity: style.TempFaultOpacity})
	}
	for _, iv := range r.Subzero {
		out = append(out, Shade{Kind: iv.Kind, Start: iv.Start, End: iv.End, Opacity: style.SubzeroOpacity})
	}
	return out
}

// valueRange returns the axis range to draw, falling back to the data extent
func (f Figure) valueRange() (float64, float64) {
	if f.YAxis != nil {
		return f.YAxis.Min, f.YAxis.Max
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range f.Traces {
		for _, p := range t.Points {
			lo = math.Min(lo, p.Value)
			hi = math.Max(hi, p.Value)
		}
	}
	if math.IsInf(lo, 0) {
		return 0, 1
	}
	return lo, hi
}
