// Package generator writes a synthetic fleet of load cell exports and the
// matching reference table, for demos and end-to-end runs.
package generator

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"load_cell_report/logger"
	"load_cell_report/models"
)

// ReferenceFileName is the name of the generated calibration table
const ReferenceFileName = "loadcelldata.csv"

// Options control the size and shape of the generated fleet
type Options struct {
	Cells    int
	Days     int
	Interval time.Duration
	Start    time.Time
	Seed     int64
}

// DefaultOptions returns a year of six-hourly readings for six cells
func DefaultOptions() Options {
	return Options{
		Cells:    6,
		Days:     365,
		Interval: 6 * time.Hour,
		Start:    time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		Seed:     time.Now().UnixNano(),
	}
}

// cell is one simulated instrument
type cell struct {
	calibration models.CalibrationRecord
	seriesName  string
	seed        int64
}

// Generate writes one CSV per cell into dir and the reference table into
// dir/reference. It returns the paths written.
func Generate(dir string, opts Options) ([]string, error) {
	if opts.Cells <= 0 || opts.Days <= 0 || opts.Interval <= 0 {
		return nil, fmt.Errorf("cells, days and interval must be positive")
	}

	refDir := filepath.Join(dir, "reference")
	if err := os.MkdirAll(refDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	cells := make([]cell, opts.Cells)
	records := make([]models.CalibrationRecord, opts.Cells)
	for i := range cells {
		id := fmt.Sprintf("LC-%03d", i+1)
		baseline := 400 + rng.Float64()*200
		records[i] = models.CalibrationRecord{
			InstrumentID:        id,
			GaugeFactor:         1.8 + rng.Float64()*0.6,
			RegressionNoLoad:    2000 + rng.Float64()*500,
			InstallTemp:         12 + rng.Float64()*10,
			Baseline:            baseline,
			CalibrationBaseline: baseline * (0.97 + rng.Float64()*0.06),
		}
		cells[i] = cell{
			calibration: records[i],
			seriesName:  fmt.Sprintf("anchor_export_%03d", i+1),
			seed:        rng.Int63(),
		}
	}

	refPath := filepath.Join(refDir, ReferenceFileName)
	if err := writeReference(refPath, records); err != nil {
		return nil, err
	}

	paths := make([]string, len(cells))
	errs := make([]error, len(cells))
	var wg sync.WaitGroup
	for i, c := range cells {
		wg.Add(1)
		go func(i int, c cell) {
			defer wg.Done()
			paths[i] = filepath.Join(dir, c.seriesName+".csv")
			errs[i] = writeSeries(paths[i], c, opts)
			if errs[i] == nil {
				logger.Printf("Generated %s\n", paths[i])
			}
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return append(paths, refPath), nil
}

// Readings simulates one cell: a seasonal temperature swing around the
// install temperature that dips below freezing in winter, a slow load
// relaxation, and sensor noise
func Readings(cal models.CalibrationRecord, opts Options, seed int64) models.ReadingSeries {
	rng := rand.New(rand.NewSource(seed))
	steps := int(time.Duration(opts.Days) * 24 * time.Hour / opts.Interval)
	series := make(models.ReadingSeries, 0, steps)

	targetLoad := cal.Baseline * (0.97 + rng.Float64()*0.05)
	for i := 0; i < steps; i++ {
		at := opts.Start.Add(time.Duration(i) * opts.Interval)
		yearFrac := float64(at.YearDay()) / 365.25
		dayFrac := float64(at.Hour()) / 24

		seasonal := 14 * math.Cos(2*math.Pi*(yearFrac-0.55))
		diurnal := 4 * math.Sin(2*math.Pi*(dayFrac-0.25))
		temperature := 8 + seasonal + diurnal + rng.NormFloat64()

		relaxation := 1 - 0.02*float64(i)/float64(steps)
		load := targetLoad * relaxation
		strain := load/(cal.GaugeFactor*0.001) + cal.RegressionNoLoad + rng.NormFloat64()*20

		series = append(series, models.Reading{
			TakenOn:        at,
			InstrumentID:   cal.InstrumentID,
			Load:           load + rng.NormFloat64()*0.5,
			ReadingAverage: strain,
			Temperature:    temperature,
		})
	}
	return series
}

func writeSeries(path string, c cell, opts Options) error {
	series := Readings(c.calibration, opts, c.seed)

	rows := [][]string{{"taken_on", "INSTRUMENT ID", "Load", "Reading_Ave", "Temperature"}}
	for _, r := range series {
		rows = append(rows, []string{
			r.TakenOn.Format("2006-01-02 15:04:05"),
			r.InstrumentID,
			formatFloat(r.Load, 2),
			formatFloat(r.ReadingAverage, 1),
			formatFloat(r.Temperature, 1),
		})
	}
	return writeCSV(path, rows)
}

func writeReference(path string, records []models.CalibrationRecord) error {
	rows := [][]string{{
		"load_cell", "guage_factor", "regression_no_load", "install_temp", "baseline", "calibration_baseline",
	}}
	for _, r := range records {
		rows = append(rows, []string{
			r.InstrumentID,
			formatFloat(r.GaugeFactor, 4),
			formatFloat(r.RegressionNoLoad, 1),
			formatFloat(r.InstallTemp, 1),
			formatFloat(r.Baseline, 1),
			formatFloat(r.CalibrationBaseline, 1),
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
