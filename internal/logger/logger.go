package logger

import (
	"strings"
	"sync"
)

// Log levels accepted by the log.level config key.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The level of the first call wins.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(strings.ToLower(strings.TrimSpace(level)))
	})
	return globalLogger
}

// ForInstance returns a child logger that tags every entry with the instance id.
func (l *Logger) ForInstance(id int64) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{SugaredLogger: l.With("instance", id)}
}
