package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel orders message severities from most to least verbose.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// level holds the active LogLevel. Loaded lazily from the environment,
// replaceable at runtime via SetLevel.
var level atomic.Int32

func init() {
	level.Store(int32(levelFromEnv()))
}

// levelFromEnv derives the initial level. DEBUG=1 wins over LOG_LEVEL;
// an unset or unrecognized LOG_LEVEL means info.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel maps a level name to its LogLevel, defaulting to info.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// GetLevel returns the active log level.
func GetLevel() LogLevel {
	return LogLevel(level.Load())
}

// SetLevel replaces the active log level.
func SetLevel(l LogLevel) {
	level.Store(int32(l))
}

// IsDebugEnabled reports whether debug messages are emitted.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func emit(l LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() > l {
		return
	}
	log.Printf(tag+format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	emit(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs an operational message.
func Info(format string, args ...interface{}) {
	emit(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...interface{}) {
	emit(LevelWarn, "[WARN] ", format, args...)
}

// Error logs an error.
func Error(format string, args ...interface{}) {
	emit(LevelError, "[ERROR] ", format, args...)
}

// Fatal logs the message and exits.
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// String returns the level's name.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
