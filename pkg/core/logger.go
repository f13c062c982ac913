// Package core holds the logging contract shared by the analyzer service,
// the history store, the remote fetchers, the watcher and the HTTP server.
package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Logger is the interface for logging in codeguard.
// Implement this interface to use a custom logger.
type Logger interface {
	// Debug logs a debug message
	Debug(format string, args ...any)

	// Info logs an info message
	Info(format string, args ...any)

	// Warn logs a warning message
	Warn(format string, args ...any)

	// Error logs an error message
	Error(format string, args ...any)
}

// LogLevel represents the logging level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelSilent
)

// ParseLogLevel parses "debug", "info", "warn", "error" or "silent".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "silent", "off", "none":
		return LogLevelSilent, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) hclog() hclog.Level {
	switch l {
	case LogLevelDebug:
		return hclog.Debug
	case LogLevelWarn:
		return hclog.Warn
	case LogLevelError:
		return hclog.Error
	case LogLevelSilent:
		return hclog.Off
	default:
		return hclog.Info
	}
}

// HCLogger is a Logger backed by hclog.
type HCLogger struct {
	l hclog.Logger
}

// LoggerOptions configures NewHCLogger.
type LoggerOptions struct {
	Name   string
	Level  LogLevel
	Output io.Writer // defaults to stderr
	JSON   bool
}

// NewHCLogger creates an hclog-backed logger.
func NewHCLogger(opts LoggerOptions) *HCLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return &HCLogger{l: hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Output:     out,
		Level:      opts.Level.hclog(),
		JSONFormat: opts.JSON,
	})}
}

// Named returns a sub-logger whose name is appended to this one's.
func (h *HCLogger) Named(name string) *HCLogger {
	return &HCLogger{l: h.l.Named(name)}
}

// Hclog exposes the underlying hclog.Logger for libraries that take one.
func (h *HCLogger) Hclog() hclog.Logger {
	return h.l
}

func (h *HCLogger) Debug(format string, args ...any) { h.l.Debug(fmt.Sprintf(format, args...)) }
func (h *HCLogger) Info(format string, args ...any)  { h.l.Info(fmt.Sprintf(format, args...)) }
func (h *HCLogger) Warn(format string, args ...any)  { h.l.Warn(fmt.Sprintf(format, args...)) }
func (h *HCLogger) Error(format string, args ...any) { h.l.Error(fmt.Sprintf(format, args...)) }

// NopLogger is a no-op logger that discards all messages.
type NopLogger struct{}

func (l *NopLogger) Debug(format string, args ...any) {}
func (l *NopLogger) Info(format string, args ...any)  {}
func (l *NopLogger) Warn(format string, args ...any)  {}
func (l *NopLogger) Error(format string, args ...any) {}

var (
	defaultLogger   Logger = &NopLogger{}
	defaultLoggerMu sync.RWMutex
)

// SetDefaultLogger sets the global default logger.
func SetDefaultLogger(logger Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if logger == nil {
		logger = &NopLogger{}
	}
	defaultLogger = logger
}

// GetDefaultLogger returns the global default logger.
func GetDefaultLogger() Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

var (
	_ Logger = (*HCLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)
