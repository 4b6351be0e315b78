// Package logging provides a small structured-logging wrapper shared by
// every long-lived component in the core.
package logging

import (
	"io"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Config controls the process-wide logger.
type Config struct {
	Level      string // debug, info, warn, error
	JSON       bool
	TimeFormat string
	Output     io.Writer // defaults to os.Stderr
}

// DefaultConfig returns sane defaults for a foreground service process.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		JSON:       false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps a charmbracelet/log logger with the component-scoping idiom
// used throughout the core: every service holds its own *Logger obtained
// via WithComponent, never the unscoped default.
type Logger struct {
	inner *charmlog.Logger
}

var std = New(DefaultConfig())

// Default returns the process-wide logger. Components should prefer
// constructor injection (New/WithComponent) over reaching for this.
func Default() *Logger { return std }

// New builds a Logger from Config.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}

	l := charmlog.NewWithOptions(out, opts)
	l.SetLevel(parseLevel(cfg.Level))

	return &Logger{inner: l}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with a component name, e.g.
// logging.Default().WithComponent("ingest").
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{inner: l.inner.With("component", name)}
}

// With returns a child logger with additional fixed key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// Fatal logs at fatal level and terminates the process. Reserved for
// startup failures (§7 "Fatal" errors): CA key unreadable, schema missing.
func (l *Logger) Fatal(msg string, kv ...any) { l.inner.Fatal(msg, kv...) }

// Package-level convenience funcs mirroring the default logger, used by
// code that has no natural place to carry an injected *Logger (init-time
// helpers, package-level singletons).
func Debug(msg string, kv ...any) { std.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { std.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { std.Warn(msg, kv...) }
func Error(msg string, kv ...any) { std.Error(msg, kv...) }
