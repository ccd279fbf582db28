// Package rlog classifies and routes renderer diagnostics by
// severity (§7): Debug/Info are diagnostic detail, which the Logger
// from NewLogger always emits (there is no verbosity switch), Warning
// discards a surface but continues the render, Error aborts the current
// operation but continues the render, and Severe aborts the render.
// It wraps logrus, giving warnings and errors the same
// "component: reason" prefixing convention the rest of this module
// uses for error values, plus the ANSI-colored stderr default §7
// requires.
package rlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Severity classifies a diagnostic per §7.
type Severity int

// Recognized severities, in increasing order of impact.
const (
	Debug Severity = iota
	Info
	Warning
	Error
	Severe
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Severe:
		return "severe"
	default:
		return "unknown"
	}
}

// Sink receives classified diagnostics. NewLogger (below) returns a
// ready-to-use Sink writing to stderr; the zero value of Logger has no
// logrus logger behind it and cannot be used.
type Sink interface {
	Log(sev Severity, component, reason string)
}

// Logger is the default Sink: structured, leveled logging via
// logrus, with ANSI color codes indicating severity (§7).
type Logger struct {
	entry *logrus.Logger
}

// NewLogger builds a Logger writing to stderr with forced ANSI
// colors, matching §7's default ("stderr with ANSI color codes
// indicating severity").
func NewLogger() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	l.SetLevel(logrus.TraceLevel)
	return &Logger{entry: l}
}

// Log implements Sink.
//
// Severe diagnostics are logged at Error level, not Fatal: §7
// requires severe errors to surface to the caller as a structured
// error value, so this package must never terminate the process on
// the render's behalf.
func (l *Logger) Log(sev Severity, component, reason string) {
	fields := logrus.Fields{"component": component, "severity": sev.String()}
	switch sev {
	case Debug:
		l.entry.WithFields(fields).Debug(reason)
	case Info:
		l.entry.WithFields(fields).Info(reason)
	case Warning:
		l.entry.WithFields(fields).Warn(reason)
	case Error, Severe:
		l.entry.WithFields(fields).Error(reason)
	}
}

// Discard is a Sink that drops every message; useful in tests that
// don't want diagnostics on stderr.
type Discard struct{}

// Log implements Sink.
func (Discard) Log(Severity, string, string) {}
