package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	atomic := zap.NewAtomicLevelAt(level)
	core, observed := observer.New(atomic)
	return &Logger{zap: zap.New(core), config: NewDefaultConfig(), level: atomic}, observed
}

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, zapcore.InfoLevel, logger.Level())
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	logger, observed := newObservedLogger(TraceLevel)
	ctx := context.Background()

	tests := []struct {
		name  string
		log   func()
		level zapcore.Level
		msg   string
	}{
		{"trace", func() { logger.Trace(ctx, "trace message", zap.String("key", "val")) }, TraceLevel, "trace message"},
		{"debug", func() { logger.Debug(ctx, "debug message", zap.String("key", "val")) }, zapcore.DebugLevel, "debug message"},
		{"info", func() { logger.Info(ctx, "info message", zap.String("key", "val")) }, zapcore.InfoLevel, "info message"},
		{"warn", func() { logger.Warn(ctx, "warn message", zap.String("key", "val")) }, zapcore.WarnLevel, "warn message"},
		{"error", func() { logger.Error(ctx, "error message", zap.String("key", "val")) }, zapcore.ErrorLevel, "error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll()
			tt.log()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, tt.msg, logs[0].Message)
			assert.Len(t, logs[0].Context, 1)
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.InfoLevel)
	child := logger.Named("matching").With(zap.String("component", "client"))
	ctx := context.Background()

	child.Debug(ctx, "hidden")
	assert.Empty(t, observed.All())

	logger.SetLevel(zapcore.DebugLevel)
	assert.Equal(t, zapcore.DebugLevel, child.Level())

	child.Debug(ctx, "visible")
	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "visible", logs[0].Message)
	assert.Equal(t, "matching", logs[0].LoggerName)
}

func TestLogger_AutoInjectContextFields(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithUserID(context.Background(), "user-1")
	ctx = WithMomentID(ctx, "3f1c2a9e-7a4b-4c1d-9e2f-1a2b3c4d5e6f")
	ctx = WithRequestID(ctx, "req_42")

	tl.Info(ctx, "moment created", zap.Int("matches", 2))

	for key, want := range map[string]string{
		"user.id":    "user-1",
		"moment.id":  "3f1c2a9e-7a4b-4c1d-9e2f-1a2b3c4d5e6f",
		"request.id": "req_42",
	} {
		got, ok := tl.FieldValue("moment created", key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Info(context.Background(), "discarded")
		_ = logger.Sync()
	})
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"TRACE", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"Info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := LevelFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
