package internal

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level is a logger's verbosity threshold: messages above it are
// dropped.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelTags = map[Level]string{
	LevelError: "[ERROR]",
	LevelWarn:  "[WARN]",
	LevelInfo:  "[INFO]",
	LevelDebug: "[DEBUG]",
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown or empty
// values mean info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	}
	return LevelInfo
}

// Logger writes tagged, leveled lines through the standard log package.
type Logger struct {
	threshold Level
}

// NewLogger creates a logger that drops messages above threshold.
func NewLogger(threshold Level) *Logger {
	return &Logger{threshold: threshold}
}

// NewDefaultLogger reads the threshold from the LOG_LEVEL environment
// variable.
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLevel(os.Getenv("LOG_LEVEL")))
}

func (l *Logger) emit(level Level, format string, args []interface{}) {
	if level > l.threshold {
		return
	}
	log.Printf("%s %s", levelTags[level], fmt.Sprintf(format, args...))
}

// Error reports failures that need operator attention.
func (l *Logger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args) }

// Warn reports degraded but recoverable conditions.
func (l *Logger) Warn(format string, args ...interface{}) { l.emit(LevelWarn, format, args) }

// Info reports normal lifecycle events.
func (l *Logger) Info(format string, args ...interface{}) { l.emit(LevelInfo, format, args) }

// Debug reports detail useful only when chasing a problem.
func (l *Logger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args) }
