// Package dlog builds the zap logger used for engine diagnostics, with
// named log levels.
package dlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LevelNone disables logging entirely.
	LevelNone = "none"

	// LevelDebug logs every engine step including subprocess argv.
	LevelDebug = "debug"

	// LevelInfo logs state transitions and sync outcomes.
	LevelInfo = "info"

	// LevelWarn logs swallowed best-effort failures.
	LevelWarn = "warn"

	// LevelError logs failures surfaced to the caller.
	LevelError = "error"
)

// GetLogger returns a zap logger at the named level.
func GetLogger(level string) (*zap.Logger, error) {
	if level == LevelNone || level == "" {
		return zap.NewNop(), nil
	}
	zapConfig := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

// MustGetLogger returns a zap logger at the named level or panics.
func MustGetLogger(level string) *zap.Logger {
	l, err := GetLogger(level)
	if err != nil {
		panic(err)
	}
	return l
}
