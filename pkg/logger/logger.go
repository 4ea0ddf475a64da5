// Package logger provides the structured key/value logger used across the
// repository. It is a thin layer over zap's SugaredLogger so that call
// sites read as
//
//	log.Info("database opened", "path", path)
//
// A process-wide default is available through [Default] and [SetDefault].
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled, structured logger taking alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// With returns a child logger that adds the given pairs to every entry.
	With(keysAndValues ...any) Logger

	// Sync flushes any buffered entries.
	Sync() error
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Sync() error { return l.s.Sync() }

// New builds a logger for the given level ("debug", "info", "warn",
// "error") and format ("json" or "console").
func New(level, format string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("logger: invalid level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logger: invalid format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build failed: %w", err)
	}
	return FromZap(l), nil
}

// MustProduction returns a JSON logger at info level and panics if zap
// cannot be initialised.
func MustProduction() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("logger: %v", err))
	}
	return FromZap(l)
}

// NewDevelopment returns a human-readable console logger at debug level.
func NewDevelopment() Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return NewNop()
	}
	return FromZap(l)
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return FromZap(zap.NewNop())
}

// ---------------------------------------------------------------------------
// Process-wide default
// ---------------------------------------------------------------------------

type holder struct{ l Logger }

var defaultLogger atomic.Pointer[holder]

func init() {
	defaultLogger.Store(&holder{l: NewNop()})
}

// Default returns the process-wide logger. It discards output until
// [SetDefault] is called.
func Default() Logger {
	return defaultLogger.Load().l
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(&holder{l: l})
}

// SyncDefault flushes the process-wide logger. Intended for defer in main.
func SyncDefault() {
	_ = Default().Sync()
}

func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }

// Fatal logs at error level, flushes, and exits the process.
func Fatal(msg string, kv ...any) {
	l := Default()
	if zl, ok := l.(*zapLogger); ok {
		zl.s.Fatalw(msg, kv...)
		return
	}
	l.Error(msg, kv...)
	_ = l.Sync()
	osExit(1)
}
