// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or file path
	Level  string // "debug", "info", "warn", "error"
}

// Init initializes the global zerolog logger with the given configuration.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)

	var writer io.Writer
	console := false
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		writer = os.Stdout
		console = true
	case "stderr":
		writer = os.Stderr
		console = true
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		writer = f
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly

	// ConsoleWriter for terminals, JSON for files
	var logger zerolog.Logger
	if console {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.TimeOnly,
		}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(writer).With().Timestamp().Logger()
	}
	if level == zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return nil
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
