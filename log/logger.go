// Package log builds the zap loggers used across the client.
//
// Two encoders are available:
//   - New: JSON lines, for services and log shipping
//   - NewConsole: the CLI's coloured [+]/[?]/[-] prefixes
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	SUCCESS = "[\x1b[37m\x1b[38;5;135m+\x1b[37m]"
	INFO    = "[\x1b[37m\x1b[38;5;135m?\x1b[37m]"
	ERROR   = "[\x1b[31m-\x1b[39m]"
)

// New returns a JSON logger writing to w (os.Stderr when nil).
func New(level zapcore.LevelEnabler, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "component",
		MessageKey:    "message",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeName:    zapcore.FullNameEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core)
}

// NewConsole returns a human-oriented logger writing to w (os.Stdout when nil).
func NewConsole(level zapcore.LevelEnabler, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stdout
	}

	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "message",
		EncodeLevel:      prefixLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core)
}

func prefixLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case level >= zapcore.WarnLevel:
		enc.AppendString(ERROR)
	case level == zapcore.InfoLevel:
		enc.AppendString(SUCCESS)
	default:
		enc.AppendString(INFO)
	}
}

// ParseLevel maps a config string ("debug", "info", ...) onto an atomic level
// that can be changed while the logger is in use. Empty means info.
func ParseLevel(s string) (zap.AtomicLevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	return zap.NewAtomicLevelAt(level), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
