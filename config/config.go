package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location
const EnvConfigPath = "LOAD_CELL_CONFIG"

// Calibration sources
const (
	CalibrationSourceCSV      = "csv"
	CalibrationSourceDatabase = "database"
)

// Output formats
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// InputConfig holds the location of the raw exports and the reference table
type InputConfig struct {
	DataGlob          string `yaml:"data_glob"`
	CalibrationFile   string `yaml:"calibration_file"`
	CalibrationSource string `yaml:"calibration_source"`
}

// AxisConfig fixes a chart axis range
type AxisConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// OutputConfig holds chart export settings
type OutputConfig struct {
	Dir         string     `yaml:"dir"`
	Formats     []string   `yaml:"formats"`
	Width       float64    `yaml:"width"`
	Height      float64    `yaml:"height"`
	PercentAxis AxisConfig `yaml:"percent_axis"`
}

// ProcessingConfig holds derivation settings
type ProcessingConfig struct {
	WorkerCount            int  `yaml:"worker_count"`
	MergeAdjacentIntervals bool `yaml:"merge_adjacent_intervals"`
	FailFast               bool `yaml:"fail_fast"`
}

// DatabaseConfig holds all database configuration
type DatabaseConfig struct {
	Enabled        bool           `yaml:"enabled"`
	Driver         string         `yaml:"driver"`
	MySQL          MySQLConfig    `yaml:"mysql"`
	PostgreSQL     PostgresConfig `yaml:"postgres"`
	SQLite         SQLiteConfig   `yaml:"sqlite"`
	ConnectionPool PoolConfig     `yaml:"connection_pool"`
}

// MySQLConfig holds MySQL specific configuration
type MySQLConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	Charset   string `yaml:"charset"`
	ParseTime bool   `yaml:"parse_time"`
	Loc       string `yaml:"loc"`
}

// PostgresConfig holds PostgreSQL specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	TimeZone string `yaml:"timezone"`
}

// SQLiteConfig holds SQLite specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxIdleConns    int `yaml:"max_idle_conns"`
	MaxOpenConns    int `yaml:"max_open_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime"`
}

// MigrationConfig holds migration specific configuration
type MigrationConfig struct {
	AutoMigrate    bool   `yaml:"auto_migrate"`
	MigrationTable string `yaml:"migration_table"`
	MigrationDir   string `yaml:"migration_dir"`
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	LogFile      string `yaml:"log_file"`
	LogToConsole bool   `yaml:"log_to_console"`
	LogLevel     string `yaml:"log_level"`
}

// MetricsConfig holds batch metrics output configuration
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after each run; empty disables it.
	Textfile string `yaml:"textfile"`
}

// Config holds the complete application configuration
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Processing ProcessingConfig `yaml:"processing"`
	Database   DatabaseConfig   `yaml:"database"`
	Migration  MigrationConfig  `yaml:"migration"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Load loads configuration from the specified YAML file
func Load(configPath string) (*Config, error) {
	// Resolve config path: argument, then environment, then default
	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns a configuration with every optional value filled in
func Default() *Config {
	return &Config{
		Input: InputConfig{
			DataGlob:          "data/*.csv",
			CalibrationFile:   "reference/loadcelldata.csv",
			CalibrationSource: CalibrationSourceCSV,
		},
		Output: OutputConfig{
			Dir:     "output",
			Formats: []string{FormatPDF, FormatHTML},
			Width:   11,
			Height:  6,
			PercentAxis: AxisConfig{
				Min:  90,
				Max:  105,
				Step: 5,
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "load_cell_report.db"},
		},
		Migration: MigrationConfig{
			MigrationTable: "migrations",
			MigrationDir:   "migrations",
		},
		Logging: LoggingConfig{
			LogFile:  "result.log",
			LogLevel: "info",
		},
	}
}

// applyDefaults fills values that YAML may have explicitly blanked
func (c *Config) applyDefaults() {
	def := Default()
	if c.Input.CalibrationSource == "" {
		c.Input.CalibrationSource = def.Input.CalibrationSource
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = def.Output.Formats
	}
	for i, f := range c.Output.Formats {
		c.Output.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if c.Output.Width <= 0 {
		c.Output.Width = def.Output.Width
	}
	if c.Output.Height <= 0 {
		c.Output.Height = def.Output.Height
	}
	if c.Logging.LogFile == "" {
		c.Logging.LogFile = def.Logging.LogFile
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = def.Logging.LogLevel
	}
	if c.Migration.MigrationTable == "" {
		c.Migration.MigrationTable = def.Migration.MigrationTable
	}
	if c.Migration.MigrationDir == "" {
		c.Migration.MigrationDir = def.Migration.MigrationDir
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Input.CalibrationSource {
	case CalibrationSourceCSV:
		if c.Input.CalibrationFile == "" {
			return fmt.Errorf("input calibration_file is required for csv calibration source")
		}
	case CalibrationSourceDatabase:
		if !c.Database.Enabled {
			return fmt.Errorf("database calibration source requires database.enabled")
		}
	default:
		return fmt.Errorf("unsupported calibration source: %s", c.Input.CalibrationSource)
	}

	for _, f := range c.Output.Formats {
		if f != FormatPDF && f != FormatHTML {
			return fmt.Errorf("unsupported output format: %s", f)
		}
	}

	if c.Output.PercentAxis.Max <= c.Output.PercentAxis.Min {
		return fmt.Errorf("output percent_axis max must be greater than min")
	}

	if c.Processing.WorkerCount < 0 {
		return fmt.Errorf("processing worker_count must not be negative")
	}

	return c.validateDatabase()
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if c.Database.MySQL.User == "" {
			return fmt.Errorf("mysql user is required")
		}
		if c.Database.MySQL.DBName == "" {
			return fmt.Errorf("mysql database name is required")
		}
	case "postgres":
		if c.Database.PostgreSQL.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.PostgreSQL.User == "" {
			return fmt.Errorf("postgres user is required")
		}
		if c.Database.PostgreSQL.DBName == "" {
			return fmt.Errorf("postgres database name is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// HasFormat reports whether charts should be written in the given format
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// GetDSN returns the database connection string based on the configured driver
func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "mysql":
		mysql := c.Database.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			mysql.User, mysql.Password, mysql.Host, mysql.Port, mysql.DBName,
			mysql.Charset, mysql.ParseTime, mysql.Loc)
		return dsn
	case "postgres":
		pg := c.Database.PostgreSQL
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode, pg.TimeZone)
		return dsn
	case "sqlite":
		return c.Database.SQLite.Path
	default:
		return ""
	}
}
