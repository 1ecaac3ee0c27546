// Package logging builds the zap loggers used by metal-server.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LevelDebug logs every service hook invocation.
	LevelDebug = "debug"
	// LevelInfo logs committed transactions and recoveries.
	LevelInfo = "info"
	// LevelWarn logs rollbacks.
	LevelWarn = "warn"
	// LevelError logs only failures that need operator attention.
	LevelError = "error"
	// LevelNone disables logging.
	LevelNone = "none"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelInfo

// ParseLevel validates level and returns its zap level. LevelNone reports ok=false.
func ParseLevel(level string) (lvl zapcore.Level, ok bool, err error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLevel
	}
	if level == LevelNone {
		return zapcore.InfoLevel, false, nil
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, false, fmt.Errorf("invalid log level %q: expected one of debug, info, warn, error, none", level)
	}
	return lvl, true, nil
}

// New returns a production zap logger at level writing JSON to stderr.
func New(level string) (*zap.Logger, error) {
	lvl, ok, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if !ok {
		return zap.NewNop(), nil
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = true
	return config.Build()
}

// NewWithWriter returns a console logger at level writing to w.
func NewWithWriter(level string, w io.Writer) (*zap.Logger, error) {
	lvl, ok, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if !ok {
		return zap.NewNop(), nil
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// Must returns the logger or panics.
func Must(logger *zap.Logger, err error) *zap.Logger {
	if err != nil {
		panic(err)
	}
	return logger
}
