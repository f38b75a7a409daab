package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(io.Discard)

// InitLogging initializes logging. Debug mode writes human-readable lines,
// anything else writes JSON.
func InitLogging(mode string) {
	level := zerolog.InfoLevel
	if mode == "debug" {
		level = zerolog.DebugLevel
	}

	l := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if mode == "debug" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	logger = l
}

// SetLogger replaces the process logger, mainly for tests.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the process logger for structured fields.
func Logger() *zerolog.Logger {
	return &logger
}

// Debugf logs debug level messages
func Debugf(format string, v ...interface{}) {
	logger.Debug().Msgf(format, v...)
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

// Warnf logs warn level messages
func Warnf(format string, v ...interface{}) {
	logger.Warn().Msgf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	logger.Error().Msgf(format, v...)
}
