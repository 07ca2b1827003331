package main

import (
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds a zerolog.Logger writing human-readable output to
// stderr, gated by the given level name (debug, info, error, or
// anything else for silence).
func newLogger(level string) zerolog.Logger {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	switch level {
	case "debug":
		l = l.Level(zerolog.DebugLevel)
	case "info":
		l = l.Level(zerolog.InfoLevel)
	case "error":
		l = l.Level(zerolog.ErrorLevel)
	default:
		l = l.Level(zerolog.Disabled)
	}
	return l
}

// zerologAdapter satisfies the homa package's internal Logger
// interface (Debugf/Infof/Errorf/Debug() bool) on top of a
// zerolog.Logger, so the sender core's anomaly and diagnostic logging
// flows through the same structured logger as the rest of the daemon.
type zerologAdapter struct {
	l zerolog.Logger
}

func (a zerologAdapter) Debugf(format string, args ...interface{}) { a.l.Debug().Msgf(format, args...) }
func (a zerologAdapter) Infof(format string, args ...interface{})  { a.l.Info().Msgf(format, args...) }
func (a zerologAdapter) Errorf(format string, args ...interface{}) { a.l.Error().Msgf(format, args...) }
func (a zerologAdapter) Debug() bool                                { return a.l.GetLevel() <= zerolog.DebugLevel }
