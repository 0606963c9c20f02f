// Package logging provides the structured logger shared by every service
// and command in the application.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a named structured logger. Construct one with New or NewDefault;
// the zero value discards nothing and carries no component tag.
type Logger struct {
	zerolog.Logger
}

// New builds a logger writing JSON lines to w at the given level, tagged
// with the component name.
func New(component string, w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
	return &Logger{Logger: zl}
}

// NewDefault builds a stderr logger honoring LOG_LEVEL and LOG_FORMAT.
// LOG_FORMAT=console switches to human-readable output for local runs.
func NewDefault(component string) *Logger {
	var w io.Writer = os.Stderr
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return New(component, w, LevelFromEnv())
}

// Nop returns a logger that discards all events.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// LevelFromEnv parses LOG_LEVEL, defaulting to info when unset or invalid.
func LevelFromEnv() zerolog.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if raw == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Named returns a child logger tagged with a scope inside the component.
func (l *Logger) Named(scope string) *Logger {
	zl := l.With().Str("scope", scope).Logger()
	return &Logger{Logger: zl}
}
