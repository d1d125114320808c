// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package logging provides the structured logger of the schema tools.
package logging

import (
	"fmt"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/sql/migrate"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger with key-value logging methods.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

var _ migrate.Logger = (*Logger)(nil)

// New returns a logger for the given mode: "prod" (or "production")
// writes JSON at info level, "quiet" writes warnings and errors only,
// and any other mode writes human readable debug output.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "quiet":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

// NewCore returns a logger writing to the given core.
func NewCore(core zapcore.Core) *Logger {
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards all entries.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes any buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// Log implements migrate.Logger.
func (l *Logger) Log(e migrate.LogEntry) {
	switch e := e.(type) {
	case migrate.LogTable:
		l.Info("executing artifact", "table", e.Table, "phase", e.Phase, "file", e.File)
	case migrate.LogStmt:
		l.Debug("executing statement", "table", e.Table, "sql", e.SQL)
	case migrate.LogError:
		l.Error("statement failed", "table", e.Table, "phase", e.Phase, "sql", e.SQL, "error", e.Error)
	case migrate.LogDone:
		if e.Failed > 0 {
			l.Warn("artifact executed with failures", "table", e.Table, "phase", e.Phase, "stmts", e.Stmts, "failed", e.Failed)
			return
		}
		l.Info("artifact executed", "table", e.Table, "phase", e.Phase, "stmts", e.Stmts)
	}
}
