package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

const defaultZapLevel = zapcore.DebugLevel

func toZapLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder

	if strings.EqualFold(format, JSONFormat) {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	// console output goes to a terminal next to the device, keep it short
	cfg.TimeKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newCore(level zapcore.Level, format string, ws zapcore.WriteSyncer) zapcore.Core {
	return zapcore.NewCore(newEncoder(format), ws, zap.NewAtomicLevelAt(level))
}

// New builds a sugared zap logger writing to stdout.
func New(level, format string) *Logger {
	core := newCore(toZapLevel(level), format, zapcore.Lock(os.Stdout))
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
	}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

func nopSugar() *zap.SugaredLogger { return zap.NewNop().Sugar() }
