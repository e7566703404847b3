package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output encodings.
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call decides level and
// format; later calls return the same instance.
func Get(level, format string) *Logger {
	once.Do(func() {
		globalLogger = New(level, format)
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Tests use it in place of nil.
func Nop() *Logger {
	return &Logger{SugaredLogger: nopSugar()}
}
