package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"load_cell_report/config"
)

// LogLevel constants
const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
)

var levels = map[string]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

var (
	mu           sync.RWMutex
	infoLogger   *log.Logger
	errorLogger  *log.Logger
	logFile      *os.File
	logLevel     = INFO
	logToConsole bool
)

// Init initializes the logging system using configuration
func Init(cfg *config.Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	logPath := cfg.Logging.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cwd, logPath)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	var outWriter, errWriter io.Writer = file, file
	if cfg.Logging.LogToConsole {
		outWriter = io.MultiWriter(os.Stdout, file)
		errWriter = io.MultiWriter(os.Stderr, file)
	}

	mu.Lock()
	logFile = file
	logToConsole = cfg.Logging.LogToConsole
	logLevel = strings.ToLower(cfg.Logging.LogLevel)
	infoLogger = log.New(outWriter, "", 0)
	errorLogger = log.New(errWriter, "", 0)
	mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	Printf("=== Session started at %s ===\n", timestamp)
	Printf("Log file: %s\n", logPath)
	Printf("Log level: %s\n", cfg.Logging.LogLevel)
	Printf("Log to console: %t\n", cfg.Logging.LogToConsole)
	LogDivider()

	return nil
}

// Close closes the log file
func Close() error {
	mu.RLock()
	file := logFile
	mu.RUnlock()
	if file == nil {
		return nil
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	LogDivider()
	Printf("=== Session ended at %s ===\n\n", timestamp)

	mu.Lock()
	logFile = nil
	infoLogger = nil
	errorLogger = nil
	mu.Unlock()
	return file.Close()
}

// SetLevel changes the minimum level that is written
func SetLevel(level string) {
	mu.Lock()
	logLevel = strings.ToLower(level)
	mu.Unlock()
}

// shouldLog determines if a message should be logged based on log level
func shouldLog(messageLevel string) bool {
	mu.RLock()
	current, ok := levels[logLevel]
	mu.RUnlock()
	if !ok {
		current = levels[INFO]
	}

	msg, ok := levels[messageLevel]
	if !ok {
		return true
	}
	return msg >= current
}

func write(level, prefix, msg string) {
	if !shouldLog(level) {
		return
	}

	mu.RLock()
	out := infoLogger
	if level == ERROR {
		out = errorLogger
	}
	mu.RUnlock()

	if out != nil {
		out.Print(prefix + msg)
		return
	}
	if level == ERROR {
		fmt.Fprint(os.Stderr, prefix+msg)
		return
	}
	fmt.Print(prefix + msg)
}

// Printf prints formatted text to log (respects log level)
func Printf(format string, v ...interface{}) {
	write(INFO, "", fmt.Sprintf(format, v...))
}

// Println prints a line to log (respects log level)
func Println(v ...interface{}) {
	write(INFO, "", fmt.Sprintln(v...))
}

// Debugf prints formatted debug text
func Debugf(format string, v ...interface{}) {
	write(DEBUG, "DEBUG: ", fmt.Sprintf(format, v...))
}

// Warnf prints formatted warning text
func Warnf(format string, v ...interface{}) {
	write(WARN, "WARN: ", fmt.Sprintf(format, v...))
}

// Errorf prints formatted error text (always logged regardless of level)
func Errorf(format string, v ...interface{}) {
	write(ERROR, "ERROR: ", fmt.Sprintf(format, v...))
}

// Fatalf prints formatted fatal error and exits (always logged)
func Fatalf(format string, v ...interface{}) {
	write(ERROR, "FATAL: ", fmt.Sprintf(format, v...))
	Close()
	os.Exit(1)
}

// LogCommand logs the command being executed
func LogCommand(command string, args []string) {
	if len(args) > 1 {
		Printf("Command executed: %s %v\n", command, args[1:])
		return
	}
	Printf("Command executed: %s\n", command)
}

// LogDivider prints a divider line for better log organization
func LogDivider() {
	Println(strings.Repeat("-", 60))
}

// LogResult logs a result with status
func LogResult(operation string, success bool, details string) {
	status := "✅ %s: SUCCESS"
	if !success {
		status = "❌ %s: FAILED"
	}
	line := fmt.Sprintf(status, operation)
	if details != "" {
		line += " - " + details
	}
	Println(line)
}

// LogProgress logs progress information
func LogProgress(current, total int, item string) {
	Printf("Progress: [%d/%d] %s\n", current, total, item)
}

// GetLogFileName returns the current log file name
func GetLogFileName() string {
	mu.RLock()
	defer mu.RUnlock()
	if logFile != nil {
		return logFile.Name()
	}
	return "result.log"
}
