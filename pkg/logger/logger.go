// Package logger builds the zerolog logger handed to every component.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn or error; anything else means info
	Pretty bool      // console output for local development
	Output io.Writer // os.Stdout when nil
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New returns a logger tagged with app=portfolio-manager. It also sets the
// process-wide minimum level, so loggers derived elsewhere obey it.
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(out).With().
		Timestamp().
		Str("app", "portfolio-manager").
		Caller().
		Logger()
}

// SetGlobal makes l the logger behind zerolog/log
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}
