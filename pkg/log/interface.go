// Package log provides the structured logging interface used across healthml.
//
// The interface is slog-shaped (message plus alternating key/value fields) so that call
// sites do not depend on the backend. The default backend is zerolog; tests use TestLogger.
//
//	logger := log.GetLoggerWithName("compare").With(log.RunIDKey, runID)
//	logger.Info("Estimator fitted",
//	    log.ModelNameKey, "Ridge",
//	    log.SamplesKey, 2512,
//	    log.FeaturesKey, 29,
//	)
package log

import (
	"context"
)

// Logger is a structured logger.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs normal progress of a run.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run, such as a solver hitting max_iter.
	Warn(msg string, fields ...any)

	// Error logs a failure. If the first field is an error it is attached as the error
	// value (with its stack trace when the backend supports it) and the remaining fields
	// are treated as key/value pairs.
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. Values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider hands out loggers. It lets tests swap the global backend.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
