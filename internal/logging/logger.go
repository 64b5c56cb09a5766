// Package logging provides the shared zap logger for codemate.
// Components obtain named sub-loggers via Named; until Init is called
// everything is a no-op, which keeps library use and tests silent.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process-wide logger. Debug mode switches to development
// encoding at debug level; production mode logs JSON at info level.
func Init(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// SetLogger replaces the root logger. Used by tests to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// Named returns a sub-logger for a component ("store", "provider", ...).
func Named(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(name)
}

// Sync flushes buffered log entries. Safe to call on a no-op logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
