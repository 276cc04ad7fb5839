// Package logging provides categorized structured logging for the engine.
// Every subsystem logs under its own category; categories resolve to
// named zap loggers. Logging defaults to a no-op core until Init installs
// a real one, so library use stays silent.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	// CategoryChase covers the rule-evaluation loop.
	CategoryChase Category = "chase"
	// CategoryPlan covers plan construction and compilation.
	CategoryPlan Category = "plan"
	// CategoryTable covers the table manager.
	CategoryTable Category = "table"
	// CategoryDictionary covers the datavalue dictionary.
	CategoryDictionary Category = "dictionary"
	// CategoryIO covers imports and exports.
	CategoryIO Category = "io"
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*Logger)
)

// Logger is a category-scoped structured logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Init installs a root zap logger; pass the result of zap.NewProduction
// or zap.NewDevelopment. Categories resolve to named children.
func Init(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*Logger)
}

// InitDevelopment installs a development logger at the given level.
func InitDevelopment(level zapcore.Level) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Init(logger)
	return nil
}

// Get returns (or creates) the logger of a category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{sugar: root.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Sync flushes the root logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Debug logs a message with alternating key/value context.
func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }

// Info logs a message with alternating key/value context.
func (l *Logger) Info(msg string, kv ...any) { l.sugar.Infow(msg, kv...) }

// Warn logs a message with alternating key/value context.
func (l *Logger) Warn(msg string, kv ...any) { l.sugar.Warnw(msg, kv...) }

// Error logs a message with alternating key/value context.
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }
