/*
Package logger builds zerolog loggers and carries them through contexts.

PURPOSE:
  One place to decide the log format (human console output in development,
  JSON lines in production) and level. Handlers and background jobs pull
  the request-scoped logger out of the context with FromContext.

USAGE:
  log := logger.New("debug", "console")
  ctx := logger.WithContext(ctx, log)

  // later, in a handler
  logger.FromContext(r.Context()).Info().Str("account_id", id).Msg("projected")

SEE ALSO:
  - middleware.go: per-request logging for the chi router
  - config/config.go: LOG_LEVEL, LOG_FORMAT
*/
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger.
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance.
	LoggerKey ContextKey = "logger"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a logger writing to stdout. format is "console" or "json";
// an unknown level falls back to info.
func New(level, format string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(w).Level(ParseLevel(level))
}

// NewWithWriter creates a logger with a custom writer, for tests.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

// WithContext adds the logger to the context.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext retrieves the logger from the context, or a disabled logger
// when none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return log
	}
	return zerolog.Nop()
}
