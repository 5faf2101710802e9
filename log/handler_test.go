package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run before any library.Initialize in this binary, so the
// handler exercises its fallback path.

func TestHostHandler_FallbackWriter(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(WithLevel(slog.LevelDebug), WithFallback(&buf))
	logger := slog.New(h)

	logger.Info("file changed", "path", "/tmp/x", "size", 42)

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "file changed")
	assert.Contains(t, out, "path=/tmp/x")
	assert.Contains(t, out, "size=42")
}

func TestHostHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(WithLevel(slog.LevelWarn), WithFallback(&buf))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestHostHandler_WithAttrsAccumulates(t *testing.T) {
	var buf bytes.Buffer
	base := NewHandler(WithLevel(slog.LevelDebug), WithFallback(&buf))
	child := base.WithAttrs([]slog.Attr{slog.String("task", "watcher")})

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "tick", 0)
	require.NoError(t, child.Handle(context.Background(), rec))

	assert.Contains(t, buf.String(), "task=watcher")

	// The parent handler is unaffected.
	buf.Reset()
	require.NoError(t, base.Handle(context.Background(), rec))
	assert.NotContains(t, buf.String(), "task=watcher")
}
