package debug

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

var logger = newLogger(os.Stderr, false)

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           level,
	})
}

// Init replaces the package logger. Verbose enables debug-level output.
func Init(w io.Writer, verbose bool) {
	logger = newLogger(w, verbose)
}

// Logger returns the package logger for callers that want structured fields.
func Logger() *log.Logger {
	return logger
}

// Step narrates a pipeline stage. It is always printed.
func Step(message string, keyvals ...interface{}) {
	logger.Info(message, keyvals...)
}

// Warn reports a recoverable data problem.
func Warn(message string, keyvals ...interface{}) {
	logger.Warn(message, keyvals...)
}

// DebugHeader prints debug header if debugging is enabled
func DebugHeader(enabled bool) {
	if enabled {
		logger.Debug("=== DEBUG START ===")
	}
}

// DebugFooter prints debug footer if debugging is enabled
func DebugFooter(enabled bool) {
	if enabled {
		logger.Debug("=== DEBUG END ===")
	}
}

// DebugOutput prints debug output if debugging is enabled
func DebugOutput(enabled bool, format string, args ...interface{}) {
	if enabled {
		logger.Debug(fmt.Sprintf(format, args...))
	}
}

// DebugTiming measures and logs execution time if debugging is enabled
func DebugTiming(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	DebugOutput(enabled, "Starting: %s", operation)

	return func() {
		DebugOutput(enabled, "Completed: %s (took %v)", operation, time.Since(start))
	}
}
