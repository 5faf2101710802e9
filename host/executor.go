// Package host runs compiled libraries inside a wazero runtime and exposes
// their exports through the packed calling convention. It exists for host
// tooling and end-to-end tests; the SDK packages never import it.
package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Executor owns the wazero runtime and the kernlink_host import module.
type Executor struct {
	runtime wazero.Runtime

	logger         *slog.Logger
	eventCapacity  int
	maxMessageSize uint32
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger routes guest log records to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithEventCapacity sets how many async events are buffered per library
// before new ones are dropped.
func WithEventCapacity(n int) Option {
	return func(e *Executor) { e.eventCapacity = n }
}

// WithMaxMessageSize caps the size of a single link message in either
// direction.
func WithMaxMessageSize(n uint32) Option {
	return func(e *Executor) { e.maxMessageSize = n }
}

// NewExecutor builds a runtime with WASI and the kernlink_host module
// instantiated.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:         slog.Default(),
		eventCapacity:  64,
		maxMessageSize: 1 << 20,
	}
	for _, opt := range opts {
		opt(e)
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostModule(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("host: register kernlink_host: %w", err)
	}
	return e, nil
}

// Close releases the runtime and every library loaded from it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
