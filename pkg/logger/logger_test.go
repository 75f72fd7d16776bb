package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return wrap(zap.New(core, zap.AddCaller())), logs
}

func TestLogger_CallerIsTheCallSite(t *testing.T) {
	log, logs := newObserved()
	ctx := context.Background()

	log.Info("direct")
	log.Warn("direct")
	log.InfoContext(ctx, "wrapped")
	log.ErrorContext(ctx, "wrapped")
	log.With(StringField("component", "consumer")).DebugContext(ctx, "child")
	log.With(StringField("component", "consumer")).Error("child")

	entries := logs.All()
	require.Len(t, entries, 6)
	for _, e := range entries {
		require.True(t, e.Caller.Defined, e.Message)
		assert.Equal(t, "logger_test.go", filepath.Base(e.Caller.File), e.Message)
	}
}

func TestLogger_ContextRequestID(t *testing.T) {
	log, logs := newObserved()

	log.InfoContext(ContextWithRequestID(context.Background(), "req-42"), "handled")
	log.InfoContext(context.Background(), "no id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("verbose", "json")
	assert.Error(t, err)

	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}
