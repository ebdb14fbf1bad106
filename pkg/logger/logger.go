// Package logger provides a process-wide structured logger, lazily
// initialized, with package-level Debug/Info/Warn/Error helpers in
// printf (f), message+keyvals (w), and plain forms - mirroring the
// shape of the teacher's pkg/logger singleton.
package logger

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	singleton atomic.Pointer[zap.SugaredLogger]
	initOnce  sync.Once
)

// Initialize sets up the singleton logger from LOGLEVEL and NO_COLOR.
// It is idempotent: subsequent calls are no-ops. PersistentPreRun in the
// CLI layer calls this exactly once per process, same as the teacher.
func Initialize() {
	initOnce.Do(func() {
		singleton.Store(build())
	})
}

func build() *zap.SugaredLogger {
	level := levelFromEnv(os.Getenv("LOGLEVEL"))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if os.Getenv("NO_COLOR") != "" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}

func levelFromEnv(raw string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}

func get() *zap.SugaredLogger {
	if l := singleton.Load(); l != nil {
		return l
	}
	Initialize()
	return singleton.Load()
}

// Debug logs at debug level.
func Debug(args ...any) { get().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Debugw logs a message with key/value pairs at debug level.
func Debugw(msg string, kv ...any) { get().Debugw(msg, kv...) }

// Info logs at info level.
func Info(args ...any) { get().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Infow logs a message with key/value pairs at info level.
func Infow(msg string, kv ...any) { get().Infow(msg, kv...) }

// Warn logs at warn level.
func Warn(args ...any) { get().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Warnw logs a message with key/value pairs at warn level.
func Warnw(msg string, kv ...any) { get().Warnw(msg, kv...) }

// Error logs at error level.
func Error(args ...any) { get().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

// Errorw logs a message with key/value pairs at error level.
func Errorw(msg string, kv ...any) { get().Errorw(msg, kv...) }
