// Package logger provides the process-wide zerolog instance, writing
// human-readable console output and optionally a JSON log file.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog so callers never import it directly.
type Logger struct {
	zerolog.Logger
}

var global *Logger

// New creates a logger at the given level. An unparseable level falls
// back to info. When logFile is non-empty the directory is created and
// log lines are mirrored there.
func New(level, logFile string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"},
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{l}, nil
}

// Init sets up the process-wide logger.
func Init(level, logFile string) error {
	l, err := New(level, logFile)
	if err != nil {
		return err
	}
	global = l
	return nil
}

// Get returns the process-wide logger, or a no-op logger before Init
// (library code and tests log safely without setup).
func Get() *Logger {
	if global == nil {
		return &Logger{zerolog.Nop()}
	}
	return global
}
