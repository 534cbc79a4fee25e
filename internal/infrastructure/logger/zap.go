// Package logger implements domain.Logger on top of zap.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ingredientscout/backend/internal/domain"
)

// ZapAdapter implements the domain.Logger interface using Zap
type ZapAdapter struct {
	logger *zap.Logger
}

// Options controls how the zap logger is assembled
type Options struct {
	Level       string
	ServiceName string
	// Stream, when set, receives a JSON copy of every entry (the live log feed)
	Stream io.Writer
}

// New builds a JSON zap logger. Info and below go to stdout, errors to stderr.
func New(opts Options) (*ZapAdapter, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stderr), errorLevel),
	}
	if opts.Stream != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(opts.Stream), level))
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.ServiceName != "" {
		zapLogger = zapLogger.With(zap.String("service", opts.ServiceName))
	}

	return &ZapAdapter{logger: zapLogger}, nil
}

// NewFromZap wraps an existing zap logger
func NewFromZap(l *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: l}
}

// NewNop returns a logger that discards everything
func NewNop() *ZapAdapter {
	return &ZapAdapter{logger: zap.NewNop()}
}

// Zap exposes the underlying zap logger
func (za *ZapAdapter) Zap() *zap.Logger {
	return za.logger
}

// Sync flushes buffered entries
func (za *ZapAdapter) Sync() error {
	return za.logger.Sync()
}

func (za *ZapAdapter) fields(ctx context.Context, kv []any) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2+2)

	if ctx != nil {
		if runID := domain.RunIDFromContext(ctx); runID != "" {
			fields = append(fields, zap.String("run_id", runID))
		}
		if ingredient := domain.IngredientFromContext(ctx); ingredient != "" {
			fields = append(fields, zap.String("ingredient", ingredient))
		}
	}

	return append(fields, toFields(kv)...)
}

func toFields(kv []any) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fields = append(fields, zap.Any("orphan_field", kv[i]))
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("field_%d", i)
		}
		if err, isErr := kv[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, fields ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	za.logger.Debug(msg, za.fields(ctx, fields)...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, fields ...any) {
	za.logger.Info(msg, za.fields(ctx, fields)...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, fields ...any) {
	za.logger.Warn(msg, za.fields(ctx, fields)...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, fields ...any) {
	za.logger.Error(msg, za.fields(ctx, fields)...)
}

func (za *ZapAdapter) With(fields ...any) domain.Logger {
	return &ZapAdapter{logger: za.logger.With(toFields(fields)...)}
}
