package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"load_cell_report/config"
	"load_cell_report/logger"

	"gorm.io/gorm"
)

// Migration is a row of the migration table
type Migration struct {
	ID          uint   `gorm:"primaryKey"`
	Version     string `gorm:"unique;not null;size:32"`
	Name        string `gorm:"not null"`
	Applied     bool   `gorm:"default:false"`
	AppliedAt   *time.Time
	Description string
}

// MigrationFile is a SQL file in the migration directory
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	FilePath    string
	Applied     bool
}

// MigrationRunner applies SQL migrations in version order
type MigrationRunner struct {
	db             *gorm.DB
	migrationTable string
	migrationDir   string
	now            func() time.Time
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *gorm.DB, cfg *config.Config) *MigrationRunner {
	return &MigrationRunner{
		db:             db,
		migrationTable: cfg.Migration.MigrationTable,
		migrationDir:   cfg.Migration.MigrationDir,
		now:            time.Now,
	}
}

func (mr *MigrationRunner) table(tx *gorm.DB) *gorm.DB {
	return tx.Table(mr.migrationTable)
}

// InitializeMigrationTable creates the migration table if it doesn't exist
func (mr *MigrationRunner) InitializeMigrationTable() error {
	return mr.table(mr.db).AutoMigrate(&Migration{})
}

// GetMigrationFiles returns the migration files, sorted by version.
// File names follow YYYYMMDD_HHMMSS_description.sql.
func (mr *MigrationRunner) GetMigrationFiles() ([]MigrationFile, error) {
	entries, err := os.ReadDir(mr.migrationDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 3)
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid migration filename format: %s (expected: YYYYMMDD_HHMMSS_description.sql)", entry.Name())
		}

		description := strings.TrimSuffix(parts[2], ".sql")
		files = append(files, MigrationFile{
			Version:     parts[0] + "_" + parts[1],
			Name:        strings.ReplaceAll(description, "_", " "),
			Description: description,
			FilePath:    filepath.Join(mr.migrationDir, entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// appliedVersions returns the set of versions recorded as applied
func (mr *MigrationRunner) appliedVersions() (map[string]bool, error) {
	if err := mr.InitializeMigrationTable(); err != nil {
		return nil, fmt.Errorf("failed to initialize migration table: %w", err)
	}

	var applied []Migration
	if err := mr.table(mr.db).Where("applied = ?", true).Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	versions := make(map[string]bool, len(applied))
	for _, m := range applied {
		versions[m.Version] = true
	}
	return versions, nil
}

// GetMigrationStatus returns all migration files with their applied flag set
func (mr *MigrationRunner) GetMigrationStatus() ([]MigrationFile, error) {
	files, err := mr.GetMigrationFiles()
	if err != nil {
		return nil, err
	}

	applied, err := mr.appliedVersions()
	if err != nil {
		return nil, err
	}

	for i := range files {
		files[i].Applied = applied[files[i].Version]
	}
	return files, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (mr *MigrationRunner) GetPendingMigrations() ([]MigrationFile, error) {
	files, err := mr.GetMigrationStatus()
	if err != nil {
		return nil, err
	}

	var pending []MigrationFile
	for _, f := range files {
		if !f.Applied {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

// RunMigrations executes all pending migrations
func (mr *MigrationRunner) RunMigrations() error {
	pending, err := mr.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pending) == 0 {
		logger.Println("No pending migrations to run")
		return nil
	}

	logger.Printf("Running %d pending migration(s)...\n", len(pending))
	for i, m := range pending {
		logger.LogProgress(i+1, len(pending), m.Version+" - "+m.Name)
		if err := mr.runSingleMigration(m); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.Version, err)
		}
	}

	logger.Println("All migrations completed successfully")
	return nil
}

// runSingleMigration executes one migration and records it in a transaction
func (mr *MigrationRunner) runSingleMigration(file MigrationFile) error {
	content, err := os.ReadFile(file.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return mr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		now := mr.now()
		record := Migration{
			Version:     file.Version,
			Name:        file.Name,
			Applied:     true,
			AppliedAt:   &now,
			Description: file.Description,
		}
		if err := mr.table(tx).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// CreateMigration creates a new migration file with the given name
func (mr *MigrationRunner) CreateMigration(name string) (string, error) {
	if err := os.MkdirAll(mr.migrationDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := mr.now()
	cleanName := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	filename := fmt.Sprintf("%s_%s.sql", now.Format("20060102_150405"), cleanName)
	filePath := filepath.Join(mr.migrationDir, filename)

	template := fmt.Sprintf(`-- Migration: %s
-- Created: %s

-- Add your migration SQL here
-- Example:
-- CREATE INDEX idx_derived_readings_instrument ON derived_readings (instrument_id);
`, name, now.Format("2006-01-02 15:04:05"))

	if err := os.WriteFile(filePath, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}

	return filePath, nil
}
