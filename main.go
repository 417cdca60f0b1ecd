package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"load_cell_report/calibration"
	"load_cell_report/chart"
	"load_cell_report/config"
	"load_cell_report/database"
	"load_cell_report/generator"
	"load_cell_report/logger"
	"load_cell_report/metrics"
	"load_cell_report/models"
	"load_cell_report/processor"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		cfg := loadConfig()
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			if err := logger.Close(); err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
		logger.LogCommand(os.Args[0], os.Args)
	}

	switch command {
	case "process":
		processCommand(optionalArg(2))
	case "calibration":
		calibrationCommand(optionalArg(2))
	case "calibration:import":
		calibrationImportCommand(optionalArg(2))
	case "generate":
		if len(os.Args) < 3 {
			fmt.Println("Error: output directory required")
			fmt.Println("Usage: load_cell_report generate <directory>")
			return
		}
		generateCommand(os.Args[2])
	case "connect":
		connectCommand()
	case "migrate":
		migrateCommand()
	case "migrate:create":
		if len(os.Args) < 3 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: load_cell_report migrate:create <migration_name>")
			return
		}
		createMigrationCommand(os.Args[2])
	case "migrate:status":
		migrationStatusCommand()
	case "db:info":
		dbInfoCommand()
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsLogging determines which commands need logging
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"process":            true,
		"calibration":        true,
		"calibration:import": true,
		"generate":           true,
		"migrate":            true,
		"migrate:create":     true,
		"migrate:status":     true,
		"connect":            true,
	}
	return loggingCommands[command]
}

func optionalArg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func showHelp() {
	fmt.Println("Load Cell Report - calibrated load reports for anchor load cells")
	fmt.Println("")
	fmt.Println("Usage: load_cell_report <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  process [glob]             Derive and chart every reading export (default: input.data_glob)")
	fmt.Println("  calibration [file]         Validate and list the calibration reference table")
	fmt.Println("  calibration:import [file]  Load the reference table into the database")
	fmt.Println("  generate <directory>       Write a synthetic fleet of exports and a reference table")
	fmt.Println("  connect                    Test database connection")
	fmt.Println("  migrate                    Run pending migrations")
	fmt.Println("  migrate:create <name>      Create a new migration file")
	fmt.Println("  migrate:status             Show migration status")
	fmt.Println("  db:info                    Show database information")
	fmt.Println("  help                       Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Printf("  Edit config.yaml or set %s to point at another file\n", config.EnvConfigPath)
	fmt.Println("")
	fmt.Println("CSV File Format:")
	fmt.Println("  Reading exports: taken_on,INSTRUMENT ID,Load,Reading_Ave,Temperature")
	fmt.Println("  Reference table: load_cell,guage_factor,regression_no_load,install_temp,baseline,calibration_baseline")
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func connectDatabase() (*config.Config, error) {
	cfg := loadConfig()

	if _, err := database.Connect(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, nil
}

// loadRegistry reads calibration records from the configured source
func loadRegistry(cfg *config.Config, file string) (*calibration.Registry, error) {
	if file == "" && cfg.Input.CalibrationSource == config.CalibrationSourceDatabase {
		db, err := database.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return calibration.LoadFromDB(db)
	}
	if file == "" {
		file = cfg.Input.CalibrationFile
	}
	return calibration.LoadCSV(file)
}

func processCommand(pattern string) {
	cfg := loadConfig()
	if pattern == "" {
		pattern = cfg.Input.DataGlob
	}
	logger.Printf("Processing reading exports: %s\n", pattern)
	defer database.Close()

	registry, err := loadRegistry(cfg, "")
	if err != nil {
		logger.Fatalf("Failed to load calibration: %v", err)
	}
	logger.Printf("Loaded %d calibration record(s)\n", registry.Len())

	exporter, err := chart.NewExporterFromConfig(cfg)
	if err != nil {
		logger.Fatalf("Failed to prepare chart output: %v", err)
	}

	opts := processor.Options{
		WorkerCount:   cfg.Processing.WorkerCount,
		MergeAdjacent: cfg.Processing.MergeAdjacentIntervals,
		FailFast:      cfg.Processing.FailFast,
		Metrics:       metrics.New(),
	}

	if cfg.Database.Enabled {
		db, err := database.Open(cfg)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatalf("Failed to prepare result tables: %v", err)
		}
		opts.Store = database.NewResultStore(db)
	}

	summary, runErr := processor.New(registry, exporter, opts).Run(pattern)
	if summary != nil {
		processor.DisplaySummary(summary)
	}

	if cfg.Metrics.Textfile != "" {
		if err := opts.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Errorf("Failed to write metrics: %v\n", err)
		}
	}

	if runErr != nil {
		logger.Fatalf("Processing failed: %v", runErr)
	}
	logger.Printf("✓ Charts written to %s\n", cfg.Output.Dir)
}

func calibrationCommand(file string) {
	cfg := loadConfig()

	defer database.Close()
	registry, err := loadRegistry(cfg, file)
	if err != nil {
		logger.Fatalf("Invalid calibration table: %v", err)
	}

	logger.Printf("%-12s %10s %12s %10s %10s %12s\n",
		"Instrument", "Gauge", "No load", "Install", "Baseline", "Calibration")
	logger.LogDivider()
	for _, r := range registry.Records() {
		line := fmt.Sprintf("%-12s %10.4f %12.1f %10.1f %10.1f %12.1f",
			r.InstrumentID, r.GaugeFactor, r.RegressionNoLoad, r.InstallTemp, r.Baseline, r.CalibrationBaseline)
		if err := r.Validate(); err != nil {
			line += "  ! " + err.Error()
		}
		logger.Println(line)
	}
	logger.Printf("✓ %d calibration record(s)\n", registry.Len())
}

func calibrationImportCommand(file string) {
	cfg := loadConfig()
	if file == "" {
		file = cfg.Input.CalibrationFile
	}
	logger.Printf("Importing calibration table: %s\n", file)

	registry, err := calibration.LoadCSV(file)
	if err != nil {
		logger.Fatalf("Invalid calibration table: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to prepare calibration table: %v", err)
	}

	if err := database.NewResultStore(db).UpsertCalibration(registry.Records()); err != nil {
		logger.Fatalf("Import failed: %v", err)
	}
	logger.Printf("✓ Imported %d calibration record(s)\n", registry.Len())
}

func generateCommand(dir string) {
	logger.Printf("Generating synthetic load cell data in %s\n", dir)

	paths, err := generator.Generate(dir, generator.DefaultOptions())
	if err != nil {
		logger.Fatalf("Generation failed: %v", err)
	}
	logger.Printf("✓ Wrote %d file(s)\n", len(paths))
}

func connectCommand() {
	logger.Println("Testing database connection...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Connection failed: %v", err)
	}

	logger.Printf("✓ Successfully connected to %s database\n", cfg.Database.Driver)

	info := database.GetDatabaseInfo(cfg)
	infoJSON, err := formatConnectionInfo(info)
	if err != nil {
		logger.Errorf("Failed to encode connection info: %v\n", err)
		return
	}
	logger.Printf("Connection info: %s\n", infoJSON)
}

// formatConnectionInfo renders database info as indented JSON
func formatConnectionInfo(info map[string]interface{}) (string, error) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal connection info: %w", err)
	}
	return string(data), nil
}

func migrateCommand() {
	logger.Println("Running database migrations...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func createMigrationCommand(name string) {
	logger.Printf("Creating migration: %s\n", name)

	cfg := loadConfig()
	runner := database.NewMigrationRunner(nil, cfg)

	filePath, err := runner.CreateMigration(name)
	if err != nil {
		logger.Fatalf("Failed to create migration: %v", err)
	}

	logger.Printf("✓ Migration created: %s\n", filePath)
}

func migrationStatusCommand() {
	logger.Println("Checking migration status...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Fatalf("Failed to get migration status: %v", err)
	}

	if len(migrations) == 0 {
		logger.Println("No migrations found")
		return
	}

	logger.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	logger.Println(strings.Repeat("-", 67))

	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		logger.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
}

func dbInfoCommand() {
	fmt.Println("Database Information:")
	fmt.Println(strings.Repeat("=", 50))

	cfg, err := connectDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	info := database.GetDatabaseInfo(cfg)

	fmt.Printf("Database Type:     %v\n", info["driver"])
	fmt.Printf("Connection Status: %v\n", getConnectionStatusText(info["connected"]))

	switch cfg.Database.Driver {
	case "mysql", "postgres":
		fmt.Printf("Host:              %v\n", info["host"])
		fmt.Printf("Port:              %v\n", info["port"])
		fmt.Printf("Database:          %v\n", info["database"])
	case "sqlite":
		fmt.Printf("File Path:         %v\n", info["path"])
	}

	if info["connected"] != true {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	fmt.Println("\nConnection Pool:")
	fmt.Printf("  Max Connections: %v\n", info["max_open_connections"])
	fmt.Printf("  Open Connections:%v\n", info["open_connections"])
	fmt.Printf("  In Use:          %v\n", info["in_use"])
	fmt.Printf("  Idle:            %v\n", info["idle"])

	db := database.GetDB()
	fmt.Println("\nData Information:")
	tables := []struct {
		label string
		model interface{}
	}{
		{"Calibrations:    ", &models.CalibrationRecord{}},
		{"Runs:            ", &models.Run{}},
		{"Derived Readings:", &models.DerivedReadingRow{}},
		{"Anomalies:       ", &models.AnomalyIntervalRow{}},
	}
	for _, t := range tables {
		if !db.Migrator().HasTable(t.model) {
			fmt.Printf("  %s n/a\n", t.label)
			continue
		}
		var count int64
		db.Model(t.model).Count(&count)
		fmt.Printf("  %s %d\n", t.label, count)
	}

	var latest models.Run
	if db.Migrator().HasTable(&models.Run{}) && db.Order("started_at DESC").Limit(1).Find(&latest).RowsAffected > 0 {
		fmt.Printf("  Latest Run:       %s (%d of %d series failed, %d skipped)\n",
			latest.StartedAt.Format("2006-01-02 15:04:05"), latest.SeriesFailed, latest.SeriesTotal, latest.SeriesSkipped)
	}

	fmt.Println(strings.Repeat("=", 50))
}

func getConnectionStatusText(connected interface{}) string {
	if conn, ok := connected.(bool); ok && conn {
		return "✓ Connected"
	}
	return "✗ Disconnected"
}
