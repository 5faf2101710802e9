package host

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

func TestNewExecutorDefaults(t *testing.T) {
	ctx := context.Background()
	e, err := NewExecutor(ctx)
	require.NoError(t, err)
	defer e.Close(ctx)

	assert.Equal(t, 64, e.eventCapacity)
	assert.Equal(t, uint32(1<<20), e.maxMessageSize)
	assert.NotNil(t, e.logger)
}

func TestExecutorOptions(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default().With("component", "test")
	e, err := NewExecutor(ctx,
		WithLogger(logger),
		WithEventCapacity(8),
		WithMaxMessageSize(4096),
	)
	require.NoError(t, err)
	defer e.Close(ctx)

	assert.Equal(t, 8, e.eventCapacity)
	assert.Equal(t, uint32(4096), e.maxMessageSize)
	assert.Same(t, logger, e.logger)
}

func TestEventBufferDropsWhenFull(t *testing.T) {
	b := NewEventBuffer(2)
	b.Publish(wireformat.Event{TaskID: 1, Name: "change"})
	b.Publish(wireformat.Event{TaskID: 1, Name: "change"})
	b.Publish(wireformat.Event{TaskID: 1, Name: "change"})

	assert.Equal(t, uint64(1), b.Dropped())

	ev := <-b.Events()
	assert.Equal(t, "change", ev.Name)
	assert.Equal(t, int64(1), ev.TaskID)
	assert.Len(t, b.Events(), 1)
}

func TestEventBufferMinimumCapacity(t *testing.T) {
	b := NewEventBuffer(0)
	b.Publish(wireformat.Event{Name: "change"})
	assert.Equal(t, uint64(0), b.Dropped())
}
