package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Format "json" is meant for
// production; anything else gets the pretty console writer for development.
func Init(service, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var lg zerolog.Logger
	if strings.EqualFold(format, "json") {
		lg = zerolog.New(os.Stdout)
	} else {
		lg = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	lg = lg.With().
		Timestamp().
		Str("service", service).
		Logger().
		Level(lvl)

	log.Logger = lg
	return lg
}

// WithRequestID returns a child logger tagged with the request id.
func WithRequestID(lg zerolog.Logger, requestID string) zerolog.Logger {
	return lg.With().Str("request_id", requestID).Logger()
}
