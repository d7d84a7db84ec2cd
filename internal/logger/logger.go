// Package logger provides the zap-based structured logger shared by the
// server and the preference client.
package logger

import (
	"go.uber.org/zap"
)

// Logger holds the process-wide *zap.Logger. Log is a no-op logger until Init
// succeeds, so it is always safe to use.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the no-op logger with a production JSON logger at the given
// level ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}

// OrNop returns log, or a no-op logger when log is nil. Library constructors
// use it so callers may leave the logger unset.
func OrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
