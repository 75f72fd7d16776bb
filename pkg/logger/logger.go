package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger with the helpers used across the services.
type Logger struct {
	*zap.Logger
	// ctx skips the *Context wrapper frame so callers are reported correctly.
	ctx *zap.Logger
}

func wrap(zl *zap.Logger) *Logger {
	return &Logger{Logger: zl, ctx: zl.WithOptions(zap.AddCallerSkip(1))}
}

// New creates a logger for the given level (debug, info, warn, error) and encoding (json, console).
func New(level, encoding string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if encoding == "" {
		encoding = "json"
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = encoding
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return wrap(zl), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

func (l *Logger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.ctx.Debug(msg, withContext(ctx, fields)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.ctx.Info(msg, withContext(ctx, fields)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.ctx.Warn(msg, withContext(ctx, fields)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.ctx.Error(msg, withContext(ctx, fields)...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return wrap(l.Logger.With(fields...))
}

type requestIDKey struct{}

// ContextWithRequestID stores a request id that the *Context methods attach to every entry.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func withContext(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return append(fields, zap.String("request_id", id))
	}
	return fields
}

func Field(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

func DurationField(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}
