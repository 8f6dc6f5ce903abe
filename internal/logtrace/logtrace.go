// Package logtrace is a thin structured-logging facade over zap.
package logtrace

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const correlationIDKey ctxKey = iota

var (
	mu     sync.RWMutex
	logger = newLogger(zapcore.InfoLevel, os.Stderr)
)

// Setup replaces the process logger. An empty or unknown level means info.
// A nil writer means stderr.
func Setup(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			lvl = zapcore.InfoLevel
		}
	}
	l := newLogger(lvl, w)
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	_ = old.Sync()
}

// SetCore installs a logger built on core; tests use it with zaptest/observer.
func SetCore(core zapcore.Core) {
	mu.Lock()
	logger = zap.New(core)
	mu.Unlock()
}

func newLogger(lvl zapcore.Level, w io.Writer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core)
}

// CtxWithCorrelationID tags every record logged with ctx.
func CtxWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func Debug(ctx context.Context, msg string, fields Fields) { write(ctx, zapcore.DebugLevel, msg, fields) }
func Info(ctx context.Context, msg string, fields Fields)  { write(ctx, zapcore.InfoLevel, msg, fields) }
func Warn(ctx context.Context, msg string, fields Fields)  { write(ctx, zapcore.WarnLevel, msg, fields) }
func Error(ctx context.Context, msg string, fields Fields) { write(ctx, zapcore.ErrorLevel, msg, fields) }

// Sync flushes the process logger.
func Sync() {
	mu.RLock()
	l := logger
	mu.RUnlock()
	_ = l.Sync()
}

func write(ctx context.Context, lvl zapcore.Level, msg string, fields Fields) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	ce := l.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(zapFields(ctx, fields)...)
}

func zapFields(ctx context.Context, fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	if ctx != nil {
		if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
			out = append(out, zap.String(FieldCorrelationID, id))
		}
	}
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
