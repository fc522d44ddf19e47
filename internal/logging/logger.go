// Package logging provides structured logging for the evo-core platform.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config holds logging configuration.
type Config struct {
	Level LogLevel
	// Format selects the wire form: "text" (human-readable console
	// writer) or "json" (one object per line, for log shipping).
	Format  string
	Output  io.Writer
	Sync    bool // write synchronously (no internal buffering)
	NoColor bool // disable ANSI color in "text" format
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{Level: LevelInfo, Format: "text", Output: os.Stderr}
}

// Logger wraps a zerolog.Logger, keeping every call site's API shape
// independent of the structured-logging backend.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// NewLogger builds a Logger from config; a nil config uses DefaultConfig.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var writer io.Writer = output
	if config.Format != "json" {
		writer = zerolog.ConsoleWriter{Out: output, NoColor: config.NoColor, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(writer).Level(config.Level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) with(args []any) zerolog.Context {
	ctx := l.zl.With()
	for i := 0; i+1 < len(args); i += 2 {
		key := fmt.Sprintf("%v", args[i])
		ctx = ctx.Interface(key, args[i+1])
	}
	return ctx
}

func (l *Logger) Debug(msg string, args ...any) { l.with(args).Logger().Debug().Msg(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.with(args).Logger().Info().Msg(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.with(args).Logger().Warn().Msg(msg) }
func (l *Logger) Error(msg string, args ...any) { l.with(args).Logger().Error().Msg(msg) }

// Printf-style logging.
func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Info().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msg(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msg(fmt.Sprintf(format, args...)) }

// Printf for compatibility with callers expecting a plain log.Logger.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// WithModule returns a child logger tagged with the owning process
// module (e.g. "hal", "cu").
func (l *Logger) WithModule(module string) *Logger {
	return &Logger{zl: l.zl.With().Str("module", module).Logger()}
}

// WithSegment returns a child logger tagged with a segment name, used by
// shm-adjacent log sites (attach/detach/validation failures).
func (l *Logger) WithSegment(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("segment", name).Logger()}
}

// WithAxis returns a child logger tagged with a 1-based axis number.
func (l *Logger) WithAxis(axis int) *Logger {
	return &Logger{zl: l.zl.With().Int("axis", axis).Logger()}
}

// WithError returns a child logger carrying err, attached automatically
// to every subsequent record.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// Global convenience functions.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
