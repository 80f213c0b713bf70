package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/looplj/caseflow/internal/contexts"
)

func TestTraceHook(t *testing.T) {
	hook := HookFunc(traceFields)

	t.Run("with trace ID", func(t *testing.T) {
		ctx := contexts.WithTraceID(context.Background(), "cf-test-trace-id")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "cf-test-trace-id", fields[0].String)
	})

	t.Run("with operation name", func(t *testing.T) {
		ctx := contexts.WithOperationName(context.Background(), "GET /v1/cases/:case_id")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "operation_name", fields[0].Key)
		assert.Equal(t, "GET /v1/cases/:case_id", fields[0].String)
	})

	t.Run("with trace and request ID", func(t *testing.T) {
		ctx := contexts.WithTraceID(context.Background(), "cf-trace")
		ctx = contexts.WithRequestID(ctx, "cf-request")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 2)
		assert.Equal(t, "request_id", fields[1].Key)
	})

	t.Run("with context that doesn't have trace ID", func(t *testing.T) {
		fields := hook.Apply(context.Background(), "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("with nil context", func(t *testing.T) {
		//nolint:staticcheck // nil context is tolerated by hooks.
		fields := hook.Apply(nil, "test message")
		assert.Len(t, fields, 0)
	})
}

func TestLoggerAppliesHooks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := newLogger(zap.New(core), zap.NewAtomicLevelAt(zapcore.DebugLevel))
	logger.AddHook(HookFunc(func(ctx context.Context, msg string, fields ...Field) []Field {
		return append(fields, String("hooked", "yes"))
	}))

	ctx := contexts.WithTraceID(context.Background(), "cf-trace")
	logger.Info(ctx, "decision", Bool("admit", true))

	entries := logs.All()
	assert.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, true, fields["admit"])
	assert.Equal(t, "cf-trace", fields["trace_id"])
	assert.Equal(t, "yes", fields["hooked"])
}

func TestLoggerLevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := newLogger(zap.New(core), zap.NewAtomicLevelAt(zapcore.WarnLevel))

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")

	assert.Equal(t, 1, logs.Len())
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("info", true))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN", false))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("", false))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error", false))
}
