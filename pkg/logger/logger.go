package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/killallgit/markstream/pkg/config"
	"github.com/lmittmann/tint"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger provides a unified logging interface
type Logger struct {
	level       LogLevel
	levelVar    *slog.LevelVar
	logger      *slog.Logger
	file        *os.File
	initialized bool
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Init initializes the logger with configuration from global config
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.initialized {
		return nil // Already initialized
	}

	settings := config.Get()
	logger, err := New(ParseLevel(settings.Logging.Level), settings.Logging.LogFile, settings.Logging.Preserve)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = logger
	return nil
}

// New creates a new Logger instance. An empty logFile logs to stderr.
func New(level LogLevel, logFile string, persist bool) (*Logger, error) {
	if logFile == "" {
		return newWithWriter(level, os.Stderr, nil, false), nil
	}

	logPath := logFile
	if !filepath.IsAbs(logPath) {
		// Relative paths live next to the settings file
		logPath = config.BuildSettingsPath(filepath.Base(logPath))
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if persist {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(logPath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return newWithWriter(level, file, file, true), nil
}

func newWithWriter(level LogLevel, w io.Writer, file *os.File, noColor bool) *Logger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(level.slogLevel())

	handler := tint.NewHandler(w, &tint.Options{
		Level:      levelVar,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	})

	return &Logger{
		level:       level,
		levelVar:    levelVar,
		logger:      slog.New(handler),
		file:        file,
		initialized: true,
	}
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel changes the minimum level at runtime
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.levelVar.Set(level.slogLevel())
}

// ParseLevel converts a string level to LogLevel
func ParseLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.logger.Log(context.Background(), level.slogLevel(), fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
	os.Exit(1)
}

// ComponentLogger is a structured logger scoped to one component. Methods take
// a message followed by key/value pairs.
type ComponentLogger struct {
	logger *slog.Logger
}

// Debug logs at debug level
func (c *ComponentLogger) Debug(msg string, kv ...any) {
	c.logger.Debug(msg, kv...)
}

// Info logs at info level
func (c *ComponentLogger) Info(msg string, kv ...any) {
	c.logger.Info(msg, kv...)
}

// Warn logs at warn level
func (c *ComponentLogger) Warn(msg string, kv ...any) {
	c.logger.Warn(msg, kv...)
}

// Error logs at error level
func (c *ComponentLogger) Error(msg string, kv ...any) {
	c.logger.Error(msg, kv...)
}

// With returns a logger carrying the extra attributes
func (c *ComponentLogger) With(kv ...any) *ComponentLogger {
	return &ComponentLogger{logger: c.logger.With(kv...)}
}

var discard = slog.New(tint.NewHandler(io.Discard, &tint.Options{Level: slog.LevelError + 1}))

// WithComponent returns a component-scoped logger. Before Init it discards
// everything, so library code can log unconditionally.
func WithComponent(name string) *ComponentLogger {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger == nil {
		return &ComponentLogger{logger: discard.With("component", name)}
	}
	return &ComponentLogger{logger: defaultLogger.logger.With("component", name)}
}

// Package-level convenience functions using the default logger

// Debug logs a debug message using the default logger
func Debug(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Debug(format, args...)
	}
}

// Info logs an info message using the default logger
func Info(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Info(format, args...)
	}
}

// Warn logs a warning message using the default logger
func Warn(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Warn(format, args...)
	}
}

// Error logs an error message using the default logger
func Error(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Error(format, args...)
	}
}

// Fatal logs a fatal message and exits using the default logger
func Fatal(format string, args ...interface{}) {
	l := current()
	if l == nil {
		fmt.Fprintf(os.Stderr, "[FATAL] "+format+"\n", args...)
		os.Exit(1)
	}
	l.Fatal(format, args...)
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetOutput redirects the default logger to w (useful for testing). It
// installs a debug-level logger when none was initialized.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	level := LevelDebug
	if defaultLogger != nil {
		level = defaultLogger.level
	}
	defaultLogger = newWithWriter(level, w, nil, true)
}

// Close closes the default logger and resets it
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger == nil {
		return nil
	}
	err := defaultLogger.Close()
	defaultLogger = nil
	return err
}
