package gardenlog

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logger threaded through CoreEnv. It is a thin,
// test-constructible wrapper over a *charmlog.Logger — every component in
// the pipeline takes a *Logger rather than reaching for package-level
// globals, per the CoreEnv design note in SPEC_FULL.md §9.
type Logger struct {
	LogLevel LogLevel
	File     string

	charm *charmlog.Logger
}

// InitializeLogger builds a Logger writing to file ("" or "/dev/stderr" for
// stderr, "/dev/stdout" for stdout, any other path opened for append).
func InitializeLogger(level LogLevel, file string) (*Logger, error) {
	out := os.Stderr
	switch file {
	case "", "/dev/stderr":
		out = os.Stderr
	case "/dev/stdout":
		f := os.Stdout
		return newLogger(level, file, f), nil
	default:
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		return newLogger(level, file, f), nil
	}
	return newLogger(level, file, out), nil
}

func newLogger(level LogLevel, file string, w *os.File) *Logger {
	charm := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})
	charm.SetLevel(level.toCharm())

	return &Logger{
		LogLevel: level,
		File:     file,
		charm:    charm,
	}
}

// Charm returns the underlying charmbracelet logger for components (like
// the Solver's event bus) that want direct access to With/WithPrefix.
func (l *Logger) Charm() *charmlog.Logger { return l.charm }

func (l *Logger) Trace(msg any, kv ...any) {
	l.charm.Log(TraceLevel, msg, kv...)
}

func (l *Logger) Debug(msg any, kv ...any) { l.charm.Debug(msg, kv...) }
func (l *Logger) Info(msg any, kv ...any)  { l.charm.Info(msg, kv...) }
func (l *Logger) Warning(msg any, kv ...any) {
	l.charm.Warn(msg, kv...)
}

// Error logs err (or any message/kv pair) at error level. Mirrors the
// teacher's single-argument Logger.Error(err) convenience while still
// accepting structured key/value pairs.
func (l *Logger) Error(msg any, kv ...any) {
	l.charm.Error(msg, kv...)
}

// With returns a derived Logger carrying the given key/value pairs on every
// subsequent call, used by the Solver to scope log lines to one action.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{
		LogLevel: l.LogLevel,
		File:     l.File,
		charm:    l.charm.With(kv...),
	}
}
