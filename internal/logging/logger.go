// Package logging provides structured logging for idrconnect.
// It wraps log/slog with configurable levels, output formats and credential redaction.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the severity of log messages
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger provides structured logging with component context
type Logger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
}

// Config represents logging configuration
type Config struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", or file path
	Component string

	// Writer overrides Output when set.
	Writer io.Writer
}

// DefaultConfig returns the default logging configuration. Logs go to stderr so that
// they never mix with command output.
func DefaultConfig() Config {
	return Config{
		Level:     WarnLevel,
		Format:    "text",
		Output:    "stderr",
		Component: "idrconnect",
	}
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	output := config.Writer
	if output == nil {
		switch config.Output {
		case "stdout":
			output = os.Stdout
		case "stderr", "":
			output = os.Stderr
		default:
			file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file %s: %w", config.Output, err)
			}
			output = file
		}
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel(config.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if isSensitiveKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		logger:    slog.New(handler),
		level:     config.Level,
		component: config.Component,
	}, nil
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return lower == "token" || lower == "omero.pass" || strings.Contains(lower, "password")
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent creates a new logger for a specific component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.String("component", component)),
		level:     l.level,
		component: component,
	}
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger:    l.logger.With(slog.Any(key, value)),
		level:     l.level,
		component: l.component,
	}
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{
		logger:    l.logger.With(args...),
		level:     l.level,
		component: l.component,
	}
}

// Debug logs a debug level message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DebugLevel {
		l.logger.Debug(msg, args...)
	}
}

// Info logs an info level message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= InfoLevel {
		l.logger.Info(msg, args...)
	}
}

// Warn logs a warning level message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WarnLevel {
		l.logger.Warn(msg, args...)
	}
}

// Error logs an error level message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.level <= ErrorLevel {
		l.logger.Error(msg, args...)
	}
}

// LogOperation logs the start and end of an operation with duration
func (l *Logger) LogOperation(operation string, fn func() error) error {
	start := time.Now()
	opLogger := l.WithField("operation", operation)

	opLogger.Debug("Operation starting")

	err := fn()
	duration := time.Since(start)

	if err != nil {
		opLogger.Error("Operation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	opLogger.Debug("Operation completed", slog.Duration("duration", duration))
	return nil
}

// LogConnectionAttempt logs the endpoint an attempt is about to use
func (l *Logger) LogConnectionAttempt(attempt int, host string, port int, user string) {
	l.Info("Attempting connection",
		slog.Int("attempt", attempt),
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("user", user))
}

// LogConnectionSuccess logs successful session establishment
func (l *Logger) LogConnectionSuccess(host string, sessionID string, duration time.Duration) {
	l.Info("Connection established successfully",
		slog.String("host", host),
		slog.String("session_id", sessionID),
		slog.Duration("connection_duration", duration))
}

// LogConnectionFailure logs connection failure with detailed context
func (l *Logger) LogConnectionFailure(host string, err error, duration time.Duration) {
	l.Error("Connection failed",
		slog.String("host", host),
		slog.String("error", err.Error()),
		slog.Duration("attempt_duration", duration))
}

// LogFallback logs the switch to the fallback transport
func (l *Logger) LogFallback(from string, to string, port int, err error) {
	l.Warn("Retrying with fallback transport",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int("port", port),
		slog.String("reason", err.Error()))
}

// LogConfigFetch logs a configuration document retrieval
func (l *Logger) LogConfigFetch(target string, bareHost string, keys int) {
	l.Debug("Fetched connection configuration",
		slog.String("target", target),
		slog.String("host", bareHost),
		slog.Int("keys", keys))
}

// LogConfigLoad logs configuration loading operations
func (l *Logger) LogConfigLoad(configPath string, profileName string) {
	l.Debug("Loading configuration",
		slog.String("config_path", configPath),
		slog.String("profile", profileName))
}

// LogHTTPRequest logs HTTP request details (without sensitive data)
func (l *Logger) LogHTTPRequest(method string, url string, statusCode int, duration time.Duration) {
	l.Debug("HTTP request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", duration))
}

// LogHealthCheck logs server probe results
func (l *Logger) LogHealthCheck(name string, status string, responseTime time.Duration, err error) {
	fields := []interface{}{
		slog.String("server", name),
		slog.String("status", status),
		slog.Duration("response_time", responseTime),
	}

	if err != nil {
		fields = append(fields, slog.String("error", err.Error()))
		l.Warn("Health check failed", fields...)
	} else {
		l.Debug("Health check completed", fields...)
	}
}

var globalLogger *Logger

// InitGlobalLogger initializes the global logger with the specified configuration
func InitGlobalLogger(config Config) error {
	logger, err := NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize global logger: %w", err)
	}
	globalLogger = logger
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger, _ = NewLogger(DefaultConfig())
	}
	return globalLogger
}

func GetConnectLogger() *Logger {
	return GetGlobalLogger().WithComponent("connect")
}

func GetProtocolLogger() *Logger {
	return GetGlobalLogger().WithComponent("protocol")
}

func GetTransportLogger() *Logger {
	return GetGlobalLogger().WithComponent("transport")
}

func GetConfigLogger() *Logger {
	return GetGlobalLogger().WithComponent("config")
}

func GetRegistryLogger() *Logger {
	return GetGlobalLogger().WithComponent("registry")
}
