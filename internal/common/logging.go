// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger to provide a consistent interface
type Logger struct {
	zerolog.Logger
}

// parseLevel maps a config level name to a zerolog level, defaulting to info
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a console logger on stderr with the specified level
func NewLogger(level string) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return NewLoggerWithOutput(level, output)
}

// NewLoggerWithOutput creates a logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	logger := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger}
}

// NewLoggerFromConfig builds a logger for the configured format and outputs.
// The returned closer releases the log file, if any.
func NewLoggerFromConfig(cfg LoggingConfig) (*Logger, io.Closer, error) {
	var writers []io.Writer
	var file *os.File

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []string{"console"}
	}

	for _, out := range outputs {
		switch strings.ToLower(out) {
		case "console":
			if strings.EqualFold(cfg.Format, "json") {
				writers = append(writers, os.Stderr)
			} else {
				writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
			}
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
			f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
			}
			file = f
			writers = append(writers, f)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	logger := NewLoggerWithOutput(cfg.Level, zerolog.MultiLevelWriter(writers...))
	if file == nil {
		return logger, nopCloser{}, nil
	}
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	logger := zerolog.New(io.Discard)
	return &Logger{Logger: logger}
}
