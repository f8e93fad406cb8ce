package instancer

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes "[prefix] LEVEL: message" lines: debug and info to
// one writer, warnings and errors to another. Loggers derived with Named
// share their root's debug switch. Safe for concurrent use.
type DefaultLogger struct {
	debug  *atomic.Bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

// NewDefaultLogger logs to stdout and stderr.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewDefaultLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func NewDefaultLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		debug:  new(atomic.Bool),
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool { return l.debug.Load() }

// SetDebug flips debug output for this logger and every logger sharing its root.
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

// Named derives a logger tagged "parent/name".
func (l *DefaultLogger) Named(name string) *DefaultLogger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "/" + name
	}
	return &DefaultLogger{debug: l.debug, prefix: prefix, out: l.out, err: l.err}
}

func (l *DefaultLogger) write(dst *log.Logger, level, format string, args []any) {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		dst.Printf("[%s] %s: %s", l.prefix, level, msg)
		return
	}
	dst.Printf("%s: %s", level, msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.DebugEnabled() {
		l.write(l.out, "DEBUG", format, args)
	}
}

func (l *DefaultLogger) Infof(format string, args ...any)  { l.write(l.out, "INFO", format, args) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.write(l.err, "WARN", format, args) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.write(l.err, "ERROR", format, args) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
