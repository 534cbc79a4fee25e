package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/logstream"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestZapAdapter_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	ctx := domain.WithIngredient(domain.WithRunID(context.Background(), "run-1"), "flour")
	l.Error(ctx, "fetch failed", "error", errors.New("boom"), "attempt", 2)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "fetch failed", entry.Message)
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "flour", fields["ingredient"])
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 2, fields["attempt"])
}

func TestZapAdapter_WithAndOrphanField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core)).With("component", "kroger")

	l.Info(context.Background(), "page fetched", "offset")
	l.Debug(context.Background(), "suppressed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "kroger", fields["component"])
	assert.Equal(t, "offset", fields["orphan_field"])
}

func TestNew_StreamReceivesEntries(t *testing.T) {
	hub := logstream.NewHub(4)
	ch, cancel := hub.Subscribe()
	defer cancel()

	l, err := New(Options{Level: "info", ServiceName: "test", Stream: hub})
	require.NoError(t, err)

	l.Info(context.Background(), "streamed")

	line := <-ch
	assert.Contains(t, string(line), `"message":"streamed"`)
	assert.Contains(t, string(line), `"service":"test"`)
}
