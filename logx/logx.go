// Package logx builds the zerolog loggers used across the engine.
//
// Components take a zerolog.Logger value. The zero value of
// zerolog.Logger writes nowhere, so callers that do not care about logs
// can leave the field unset.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level and output format.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // console, json
	Output io.Writer
}

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a logger for cfg. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	zerolog.ErrorFieldName = "err"

	level := ParseLevel(cfg.Level, zerolog.InfoLevel)
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that never writes anything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return def
	}
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
