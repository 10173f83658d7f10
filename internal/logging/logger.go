package logging

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/kyleking/gem-support/internal/config"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

const (
	logDirPerm  = 0755
	logFilePerm = 0644

	callerSkip = 3
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

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// sink is shared by a logger and every logger derived from it
type sink struct {
	mu   sync.Mutex
	w    io.Writer
	file *os.File
}

func (s *sink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintln(s.w, line)
}

// Logger provides structured logging capabilities.
// Loggers are immutable; With* methods return children.
type Logger struct {
	level      LogLevel
	format     string
	out        *sink
	fields     map[string]any
	showCaller bool
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitializeLogger builds a logger from cfg and installs it globally,
// closing the one it replaces
func InitializeLogger(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}

	if previous := SetGlobal(logger); previous != nil {
		_ = previous.Close()
	}

	return nil
}

// SetGlobal installs logger as the global logger and returns the previous one
func SetGlobal(logger *Logger) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	previous := globalLogger
	globalLogger = logger

	return previous
}

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	out := &sink{}

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out.w = os.Stdout
	case "stderr":
		out.w = os.Stderr
	case "file":
		if cfg.File == "" {
			return nil, errors.New("log file path is required when output is 'file'")
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), logDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		out.file = file
		out.w = file
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	level := ParseLevel(cfg.Level)

	return &Logger{
		level:      level,
		format:     strings.ToLower(cfg.Format),
		out:        out,
		fields:     map[string]any{},
		showCaller: level == DebugLevel,
	}, nil
}

// New returns a logger writing to w
func New(w io.Writer, level LogLevel, format string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		out:    &sink{w: w},
		fields: map[string]any{},
	}
}

// Discard returns a logger that drops every entry
func Discard() *Logger {
	return New(io.Discard, ErrorLevel+1, "text")
}

// ParseLevel parses a string log level, defaulting to info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Enabled reports whether entries at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.level
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]any) *Logger {
	child := *l
	child.fields = make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(child.fields, l.fields)
	maps.Copy(child.fields, fields)

	return &child
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	return l.WithField("error", err.Error())
}

func (l *Logger) log(level LogLevel, message string, err error) {
	if !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Fields:    l.fields,
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if l.showCaller {
		entry.Caller = getCaller()
	}

	if l.format == "json" {
		data, marshalErr := json.Marshal(entry)
		if marshalErr != nil {
			data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, entry.Level, entry.Message))
		}

		l.out.writeLine(string(data))

		return
	}

	l.out.writeLine(formatText(entry))
}

// formatText renders an entry with fields in key order
func formatText(entry LogEntry) string {
	parts := []string{fmt.Sprintf("[%s] %s", entry.Timestamp, entry.Level)}

	if entry.Caller != "" {
		parts = append(parts, fmt.Sprintf("(%s)", entry.Caller))
	}

	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		keys := slices.Sorted(maps.Keys(entry.Fields))

		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}

		parts = append(parts, fmt.Sprintf("{%s}", strings.Join(fieldParts, " ")))
	}

	if entry.Error != "" {
		parts = append(parts, "error="+entry.Error)
	}

	return strings.Join(parts, " ")
}

func getCaller() string {
	_, file, line, ok := runtime.Caller(callerSkip)
	if !ok {
		return "unknown"
	}

	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(DebugLevel, message, nil)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.log(DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(InfoLevel, message, nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.log(InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(WarnLevel, message, nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.log(ErrorLevel, message, nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// ErrorWithErr logs an error message with an associated error
func (l *Logger) ErrorWithErr(message string, err error) {
	l.log(ErrorLevel, message, err)
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file == nil {
		return nil
	}

	err := l.out.file.Close()
	l.out.file = nil
	l.out.w = io.Discard

	return err
}

// GetLogger returns the global logger, or a discarding logger before
// initialization
func GetLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return Discard()
	}

	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(message string) { GetLogger().log(DebugLevel, message, nil) }

// Info logs an info message using the global logger
func Info(message string) { GetLogger().log(InfoLevel, message, nil) }

// Warn logs a warning message using the global logger
func Warn(message string) { GetLogger().log(WarnLevel, message, nil) }

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...any) {
	GetLogger().log(WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message using the global logger
func Error(message string) { GetLogger().log(ErrorLevel, message, nil) }

// ErrorWithErr logs an error message with an associated error using the global logger
func ErrorWithErr(message string, err error) {
	GetLogger().log(ErrorLevel, message, err)
}

// WithField adds a field to the global logger context
func WithField(key string, value any) *Logger {
	return GetLogger().WithField(key, value)
}

// SetupFallbackLogger installs a basic stderr logger for when configuration fails
func SetupFallbackLogger() {
	SetGlobal(New(os.Stderr, InfoLevel, "text"))
}

// LoggerMiddleware runs fn, logging its start, duration, and outcome
// against logger
func LoggerMiddleware(logger *Logger, operation string, fn func() error) error {
	logger = logger.WithField("operation", operation)
	logger.Debug("Starting operation")

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.WithField("duration", duration.String()).ErrorWithErr("Operation failed", err)
	} else {
		logger.WithField("duration", duration.String()).Debug("Operation completed successfully")
	}

	return err
}
