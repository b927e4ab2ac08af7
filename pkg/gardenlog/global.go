package gardenlog

import "sync"

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

func defaultLogger() *Logger {
	defaultOnce.Do(func() {
		l, err := InitializeLogger(LogLevelInfo, "")
		if err != nil {
			// stderr is always writable; InitializeLogger only fails on
			// os.OpenFile for an explicit file path, which "" never takes.
			panic(err)
		}
		defaultLog = l
	})
	return defaultLog
}

// SetDefault replaces the package-level logger used by the free functions
// below, letting CoreEnv install the same instance process-wide.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLog = l
}

// Trace logs at trace level on the default logger.
func Trace(msg any, kv ...any) { defaultLogger().Trace(msg, kv...) }

// Debug logs at debug level on the default logger.
func Debug(msg any, kv ...any) { defaultLogger().Debug(msg, kv...) }

// Info logs at info level on the default logger.
func Info(msg any, kv ...any) { defaultLogger().Info(msg, kv...) }

// Warn logs at warning level on the default logger.
func Warn(msg any, kv ...any) { defaultLogger().Warning(msg, kv...) }

// Error logs at error level on the default logger.
func Error(msg any, kv ...any) { defaultLogger().Error(msg, kv...) }
