// Copyright 2024 The OSMTemporal Authors
// This file is part of osmtemporal/resolver.

// Package logging wraps zap behind a narrow interface so components depend
// on a logging contract rather than a concrete library, the way Erigon's
// own log package wraps its backend.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the contract every component accepts. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is a key/value pair attached to a log line.
type Field = zap.Field

func String(key, val string) Field   { return zap.String(key, val) }
func Int(key string, val int) Field  { return zap.Int(key, val) }
func Uint64(key string, v uint64) Field { return zap.Uint64(key, v) }
func Int64(key string, v int64) Field   { return zap.Int64(key, v) }
func Err(err error) Field               { return zap.Error(err) }

type zapLogger struct {
	l *zap.Logger
}

// New builds a production-style, JSON, level-filtered logger.
func New(debug bool) Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l}
}

// Nop returns a logger that discards everything, for tests.
func Nop() Logger { return &zapLogger{l: zap.NewNop()} }

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{l: z.l.With(fields...)}
}
