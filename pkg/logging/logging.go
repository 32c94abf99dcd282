// Package logging builds the process logger
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultLevel keeps normal runs quiet on stderr
const DefaultLevel = "warn"

// TimeFormat is the millisecond timestamp layout used in log lines
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

func init() {
	zerolog.TimeFieldFormat = TimeFormat
}

// New returns a timestamped JSON logger writing to w. Unknown levels fall
// back to DefaultLevel.
func New(level string, w io.Writer) zerolog.Logger {
	name := strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
