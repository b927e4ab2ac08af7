// Package gardenlog provides the structured leveled logger used across the
// Config→Graph→Solver pipeline, wrapping github.com/charmbracelet/log the
// way the teacher's pkg/logger wraps the same library.
package gardenlog

import (
	"strings"

	charmlog "github.com/charmbracelet/log"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

// LogLevel is a string-typed level name as it appears in CoreEnv config,
// distinct from charmlog.Level which is the numeric level charmbracelet
// uses internally.
type LogLevel string

const (
	LogLevelTrace   LogLevel = "Trace"
	LogLevelDebug   LogLevel = "Debug"
	LogLevelInfo    LogLevel = "Info"
	LogLevelWarning LogLevel = "Warning"
	LogLevelOff     LogLevel = "Off"
)

// TraceLevel sits one step below charmlog.DebugLevel, since charmbracelet/log
// ships no trace level of its own.
const TraceLevel = charmlog.DebugLevel - 1

// ParseLogLevel parses a level name. An empty string defaults to Info;
// anything else must match one of the LogLevel constants exactly
// (case-sensitive), matching the teacher's strict parser.
func ParseLogLevel(s string) (LogLevel, error) {
	if s == "" {
		return LogLevelInfo, nil
	}
	switch LogLevel(s) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelOff:
		return LogLevel(s), nil
	default:
		return "", gerrors.Build(gerrors.Newf("invalid log level %q", s)).
			WithHintf("valid levels: %s", strings.Join([]string{
				string(LogLevelTrace), string(LogLevelDebug), string(LogLevelInfo),
				string(LogLevelWarning), string(LogLevelOff),
			}, ", ")).
			Err()
	}
}

func (l LogLevel) toCharm() charmlog.Level {
	switch l {
	case LogLevelTrace:
		return TraceLevel
	case LogLevelDebug:
		return charmlog.DebugLevel
	case LogLevelWarning:
		return charmlog.WarnLevel
	case LogLevelOff:
		return charmlog.FatalLevel + 1
	default:
		return charmlog.InfoLevel
	}
}
