// Package logger is the process-wide structured log. Output is discarded
// until Init or InitWriter is called.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger = zerolog.Nop()
	logFile      *os.File
	writer       io.Writer = io.Discard
	level                  = zerolog.InfoLevel
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	setWriter(f)
	return nil
}

// InitWriter sends log output to w, e.g. a console writer.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setWriter(w)
}

func setWriter(w io.Writer) {
	writer = w
	globalLogger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetLevel sets the minimum level: debug, info, warn or error.
// Unknown values fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(name) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	globalLogger = globalLogger.Level(level)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	writer = io.Discard
	globalLogger = zerolog.Nop()
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With().Str("component", component).Logger()
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Info().Msgf(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Debug().Msgf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Error().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Warn().Msgf(format, v...)
}

// GetWriter returns the underlying writer.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return writer
}

// ConsoleWriter returns a human-readable writer for terminals.
func ConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
}
