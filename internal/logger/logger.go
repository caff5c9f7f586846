// Package logger provides leveled logging for the whole service. It keeps a
// small package-level API (Init once at startup, then Debug/Info/Warn/Error)
// on top of zerolog so call sites stay one-liners.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the package logger with the given level and output format.
// Level is one of debug, info, warn, error (unknown values fall back to info).
// Format "console" selects human-readable output; anything else emits JSON.
func Init(level string, format string) {
	var l zerolog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = zerolog.DebugLevel
	case "info":
		l = zerolog.InfoLevel
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	default:
		l = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if strings.ToLower(format) == "console" {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		out = zerolog.New(w)
	} else {
		out = zerolog.New(os.Stderr)
	}

	log = out.Level(l).With().Timestamp().Logger()
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...interface{}) {
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info logs a formatted message at info level.
func Info(format string, args ...interface{}) {
	log.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...interface{}) {
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs a formatted message at error level.
func Error(format string, args ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatal logs a formatted message and exits the process.
func Fatal(format string, args ...interface{}) {
	log.Fatal().Msg(fmt.Sprintf(format, args...))
}
