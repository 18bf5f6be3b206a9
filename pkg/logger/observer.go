package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// NewObserverLogger creates a logger that records every entry in memory, for
// use in tests that assert on log output.
func NewObserverLogger(level string) (Logger, *observer.ObservedLogs) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	observerCore, logs := observer.New(lvl)
	return &ZapLogger{Logger: zap.New(observerCore)}, logs
}
