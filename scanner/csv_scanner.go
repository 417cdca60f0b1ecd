package scanner

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"load_cell_report/logger"
	"load_cell_report/models"
)

// Reading export columns
const (
	ColumnTakenOn        = "taken_on"
	ColumnInstrumentID   = "instrument id"
	ColumnLoad           = "load"
	ColumnReadingAverage = "reading_ave"
	ColumnTemperature    = "temperature"
)

var requiredColumns = []string{
	ColumnTakenOn, ColumnInstrumentID, ColumnLoad, ColumnReadingAverage, ColumnTemperature,
}

// timestampLayouts are tried in order when parsing taken_on
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"1/2/2006",
}

// FileJob represents a CSV file to be loaded
type FileJob struct {
	FilePath string
	FileName string
}

// SeriesName returns the file's base name with its extension stripped
func (j FileJob) SeriesName() string {
	return strings.TrimSuffix(j.FileName, filepath.Ext(j.FileName))
}

// LoadResult is one parsed reading export
type LoadResult struct {
	Name       string
	Series     models.ReadingSeries
	ErrorCount int
}

// Discover returns the CSV files matching a glob pattern, sorted by path.
// A pattern naming a directory matches the CSV files directly inside it.
func Discover(pattern string) ([]FileJob, error) {
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		pattern = filepath.Join(pattern, "*.csv")
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}

	var jobs []FileJob
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".csv" {
			continue
		}
		jobs = append(jobs, FileJob{
			FilePath: path,
			FileName: filepath.Base(path),
		})
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].FilePath < jobs[j].FilePath
	})
	return jobs, nil
}

// LoadFile reads one reading export
func LoadFile(job FileJob) (*LoadResult, error) {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	series, errorCount, err := ReadSeries(file, job.FileName)
	if err != nil {
		return nil, err
	}

	return &LoadResult{
		Name:       job.SeriesName(),
		Series:     series,
		ErrorCount: errorCount,
	}, nil
}

// ReadSeries parses a reading export. Rows that cannot be parsed are skipped
// and counted; a stream without a usable header or without any valid row
// is a data integrity error. The result keeps file order.
func ReadSeries(r io.Reader, fileName string) (models.ReadingSeries, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, models.NewDataIntegrityError(fileName, "empty CSV file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, 0, models.NewDataIntegrityError(fileName, "missing required column %q", col)
		}
	}

	var series models.ReadingSeries
	var errorCount int
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			errorCount++
			logger.Warnf("Row %d in %s could not be read: %v\n", row, fileName, err)
			continue
		}

		reading, err := parseRecord(record, columns)
		if err != nil {
			errorCount++
			logger.Warnf("Row %d in %s skipped: %v\n", row, fileName, err)
			continue
		}
		series = append(series, reading)
	}

	if len(series) == 0 {
		return nil, errorCount, models.NewDataIntegrityError(fileName, "no valid readings")
	}

	return series, errorCount, nil
}

// parseRecord converts one CSV row into a Reading
func parseRecord(record []string, columns map[string]int) (models.Reading, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	number := func(name string) (float64, error) {
		raw := field(name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %q", name, raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("non-finite %s: %q", name, raw)
		}
		return v, nil
	}

	var reading models.Reading

	takenOn, err := ParseTimestamp(field(ColumnTakenOn))
	if err != nil {
		return reading, err
	}
	reading.TakenOn = takenOn

	reading.InstrumentID = field(ColumnInstrumentID)
	if reading.InstrumentID == "" {
		return reading, fmt.Errorf("empty instrument id")
	}

	if reading.Load, err = number(ColumnLoad); err != nil {
		return reading, err
	}
	if reading.ReadingAverage, err = number(ColumnReadingAverage); err != nil {
		return reading, err
	}
	if reading.Temperature, err = number(ColumnTemperature); err != nil {
		return reading, err
	}

	return reading, nil
}

// ParseTimestamp parses taken_on values in any of the supported layouts.
// Values without a zone are taken as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp format: %q", value)
}

// ShortLabel returns the last three characters of a series name, used as
// the instrument label in chart titles and file names
func ShortLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return name
	}
	return string(runes[len(runes)-3:])
}
