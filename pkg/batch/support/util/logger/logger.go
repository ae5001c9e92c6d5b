// Package logger provides the process-wide leveled logger used by cropwx.
// It keeps a small printf-style facade over a zap SugaredLogger so callers
// never hold a logger instance of their own.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatJSON emits one JSON object per log line.
	FormatJSON = "json"
	// FormatConsole emits human readable, tab separated lines.
	FormatConsole = "console"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format = FormatConsole
	sugar  = build(FormatConsole)
)

func build(f string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if f == FormatConsole {
		cfg.Encoding = FormatConsole
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// An unknown value falls back to INFO and a warning is written to stderr.
func SetLogLevel(l string) {
	switch strings.ToUpper(strings.TrimSpace(l)) {
	case "DEBUG":
		level.SetLevel(zapcore.DebugLevel)
	case "INFO":
		level.SetLevel(zapcore.InfoLevel)
	case "WARN":
		level.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		level.SetLevel(zapcore.ErrorLevel)
	case "FATAL":
		level.SetLevel(zapcore.FatalLevel)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level '%s' specified. Defaulting to INFO level.\n", l)
		level.SetLevel(zapcore.InfoLevel)
	}
}

// SetFormat switches the output encoding between "json" and "console".
func SetFormat(f string) {
	f = strings.ToLower(strings.TrimSpace(f))
	if f != FormatJSON && f != FormatConsole {
		fmt.Fprintf(os.Stderr, "Unknown log format '%s' specified. Defaulting to %s.\n", f, FormatConsole)
		f = FormatConsole
	}
	mu.Lock()
	defer mu.Unlock()
	if f == format {
		return
	}
	_ = sugar.Sync()
	format = f
	sugar = build(f)
}

// IsDebugEnabled reports whether DEBUG messages are currently written.
func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then terminates the program.
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// With returns a structured logger carrying the given key/value pairs.
// Used where many lines describe the same subject, such as one job execution.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = current().Sync()
}
