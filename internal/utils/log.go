// Package utils holds small cross-cutting helpers shared by the rest
// of the module, mirroring quic-go's internal/utils package.
package utils

import (
	"log"
	"os"
	"strconv"
	"time"
)

// LogLevel gates which of a Logger's methods actually write output.
type LogLevel uint8

const (
	logEnv = "HOMA_LOG_LEVEL"

	// LogLevelNothing disables all logging.
	LogLevelNothing LogLevel = 0
	// LogLevelError enables Errorf.
	LogLevelError LogLevel = 1
	// LogLevelInfo enables Errorf and Infof.
	LogLevelInfo LogLevel = 2
	// LogLevelDebug enables Errorf, Infof and Debugf.
	LogLevelDebug LogLevel = 3
)

// Logger is the library-internal logging surface used by the homa
// package. Unlike quic-go's internal/utils, which exposes package-level
// logging functions backed by one process-wide singleton, this one is
// a value held by a *Homa context: a test harness routinely creates
// several independent Homa contexts in one process, and a singleton
// would make their logs indistinguishable.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debug() bool
}

type defaultLogger struct {
	level      LogLevel
	timeFormat string
	prefix     string
}

// NewLogger builds a Logger that writes to the standard library's log
// package, gated by level. prefix is prepended to every line (e.g. a
// Homa context's name), matching the tagged-log idiom quic-go uses for
// per-connection loggers.
func NewLogger(level LogLevel, prefix string) Logger {
	return &defaultLogger{level: level, prefix: prefix}
}

// NewLoggerFromEnv builds a Logger whose level is read from the
// HOMA_LOG_LEVEL environment variable (LogLevelNothing if unset or
// unparsable), following the QUIC_GO_LOG_LEVEL convention in quic-go.
func NewLoggerFromEnv(prefix string) Logger {
	level := LogLevelNothing
	if env := os.Getenv(logEnv); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			level = LogLevel(v)
		}
	}
	return NewLogger(level, prefix)
}

// SetTimeFormat sets the format used to stamp each log line, and clears
// the standard log package's own flags; an empty string then disables
// timestamps. Until it is called, the standard log package's default
// date/time prefix applies.
func (l *defaultLogger) SetTimeFormat(format string) {
	log.SetFlags(0)
	l.timeFormat = format
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logMessage(format, args...)
	}
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logMessage(format, args...)
	}
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.logMessage(format, args...)
	}
}

func (l *defaultLogger) Debug() bool {
	return l.level >= LogLevelDebug
}

func (l *defaultLogger) logMessage(format string, args ...interface{}) {
	if l.prefix != "" {
		format = l.prefix + ": " + format
	}
	if l.timeFormat != "" {
		log.Printf(time.Now().Format(l.timeFormat)+" "+format, args...)
		return
	}
	log.Printf(format, args...)
}

// NopLogger discards everything; used as the default when no Logger
// is configured.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debug() bool                   { return false }
