package database

import (
	"fmt"
	"time"

	"load_cell_report/derivation"
	"load_cell_report/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 1000

// ResultStore persists batch runs and their derived data
type ResultStore struct {
	db *gorm.DB
}

// NewResultStore creates a store on an open connection
func NewResultStore(db *gorm.DB) *ResultStore {
	return &ResultStore{db: db}
}

// BeginRun records the start of a run
func (s *ResultStore) BeginRun(runID string, startedAt time.Time) error {
	run := models.Run{ID: runID, StartedAt: startedAt}
	if err := s.db.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stores the run totals
func (s *ResultStore) FinishRun(runID string, finishedAt time.Time, total, failed, skipped, stored int) error {
	err := s.db.Model(&models.Run{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"finished_at":     finishedAt,
		"series_total":    total,
		"series_failed":   failed,
		"series_skipped":  skipped,
		"readings_stored": stored,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// UpsertCalibration inserts or replaces calibration records by instrument id
func (s *ResultStore) UpsertCalibration(records []models.CalibrationRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gauge_factor", "regression_no_load", "install_temp",
			"baseline", "calibration_baseline", "updated_at",
		}),
	}).CreateInBatches(records, batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert calibration records: %w", err)
	}
	return nil
}

// SaveResult stores one series' derived readings and anomaly intervals in a
// single transaction and returns the number of readings written
func (s *ResultStore) SaveResult(runID string, r *derivation.Result) (int, error) {
	rows := make([]models.DerivedReadingRow, len(r.Readings))
	for i, d := range r.Readings {
		rows[i] = models.NewDerivedReadingRow(runID, r.Name, d)
	}

	var intervals []models.AnomalyIntervalRow
	for _, group := range [][]models.AnomalyInterval{r.TempFault, r.Subzero} {
		for _, iv := range group {
			intervals = append(intervals, models.AnomalyIntervalRow{
				RunID:      runID,
				SeriesName: r.Name,
				Kind:       iv.Kind,
				StartsAt:   iv.Start,
				EndsAt:     iv.End,
			})
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert derived readings: %w", err)
			}
		}
		if len(intervals) > 0 {
			if err := tx.CreateInBatches(intervals, batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert anomaly intervals: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("series %s: %w", r.Name, err)
	}
	return len(rows), nil
}

// ReadingsForRun returns a run's stored readings for one series, ordered by time
func (s *ResultStore) ReadingsForRun(runID, seriesName string) ([]models.DerivedReadingRow, error) {
	var rows []models.DerivedReadingRow
	err := s.db.Where("run_id = ? AND series_name = ?", runID, seriesName).
		Order("taken_on ASC").Find(&rows).Error
	return rows, err
}

// IntervalsForRun returns a run's stored intervals for one series
func (s *ResultStore) IntervalsForRun(runID, seriesName string) ([]models.AnomalyIntervalRow, error) {
	var rows []models.AnomalyIntervalRow
	err := s.db.Where("run_id = ? AND series_name = ?", runID, seriesName).
		Order("kind ASC, starts_at ASC").Find(&rows).Error
	return rows, err
}

// GetRun returns a run by id
func (s *ResultStore) GetRun(runID string) (*models.Run, error) {
	var run models.Run
	if err := s.db.First(&run, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
