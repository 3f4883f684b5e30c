// Package logging wraps zerolog. The TUI owns the terminal, so logs normally
// go to a file and only headless commands may mirror them to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     = zerolog.Nop()
	loggerLock sync.RWMutex
	logFile    *os.File
)

// Options controls where logs go
type Options struct {
	Level   string
	File    string // Empty disables file output
	Console bool   // Mirror to stderr with a human readable writer
}

// Init configures the global logger. Calling it again replaces the outputs.
func Init(opts Options) error {
	var writers []io.Writer

	loggerLock.Lock()
	defer loggerLock.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		writers = append(writers, f)
	}

	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		})
	}

	if len(writers) == 0 {
		logger = zerolog.Nop()
		return nil
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
	return nil
}

// Close flushes and closes the log file
func Close() {
	loggerLock.Lock()
	defer loggerLock.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
}

// SetOutput points the logger at w, used by tests
func SetOutput(w io.Writer, level string) {
	loggerLock.Lock()
	logger = zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	loggerLock.Unlock()
}

func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	l := logger
	return &l
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return current().Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return current().Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return current().Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return current().Error()
}

// Logger returns the underlying zerolog.Logger
func Logger() zerolog.Logger {
	return *current()
}
