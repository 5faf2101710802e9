package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// Library is one loaded guest module together with its link queues and
// event buffer.
type Library struct {
	module api.Module

	mu       sync.Mutex
	requests [][]byte
	replies  [][]byte
	removed  map[int64]bool

	events     *EventBuffer
	nextTaskID atomic.Int64
	aborted    atomic.Bool
}

// Load instantiates a compiled library.
func (e *Executor) Load(ctx context.Context, wasmBytes []byte) (*Library, error) {
	lib := &Library{events: NewEventBuffer(e.eventCapacity)}

	mod, err := e.runtime.Instantiate(withInstance(ctx, lib), wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("host: instantiate library: %w", err)
	}
	lib.module = mod

	for _, name := range []string{"kernlink_call", "kernlink_call_transport", "allocate", "deallocate"} {
		if mod.ExportedFunction(name) == nil {
			mod.Close(ctx)
			return nil, fmt.Errorf("host: library does not export %q", name)
		}
	}
	return lib, nil
}

// Close tears the guest module down.
func (l *Library) Close(ctx context.Context) error {
	return l.module.Close(ctx)
}

// Events returns the library's async event stream.
func (l *Library) Events() <-chan wireformat.Event {
	return l.events.Events()
}

// EventsDropped reports how many async events overflowed the buffer.
func (l *Library) EventsDropped() uint64 {
	return l.events.Dropped()
}

// RequestAbort asks the library's running code to return early; it polls
// the flag through the abort callback.
func (l *Library) RequestAbort() { l.aborted.Store(true) }

// ClearAbort resets the abort flag before the next call.
func (l *Library) ClearAbort() { l.aborted.Store(false) }

// Call invokes a native-mode export with the given argument cells.
func (l *Library) Call(ctx context.Context, name string, args ...cells.Cell) (cells.Cell, error) {
	ctx = withInstance(ctx, l)

	encoded, err := wireformat.EncodeCells(args)
	if err != nil {
		return cells.Cell{}, fmt.Errorf("host: encode arguments: %w", err)
	}
	namePacked, err := l.writeToGuest(ctx, []byte(name))
	if err != nil {
		return cells.Cell{}, err
	}
	argsPacked, err := l.writeToGuest(ctx, encoded)
	if err != nil {
		return cells.Cell{}, err
	}

	results, err := l.module.ExportedFunction("kernlink_call").Call(ctx, namePacked, argsPacked)
	if err != nil {
		return cells.Cell{}, fmt.Errorf("host: call %q: %w", name, err)
	}
	if len(results) == 0 || results[0] == 0 {
		return cells.Cell{}, fmt.Errorf("host: call %q: empty reply", name)
	}

	raw, err := l.readFromGuest(ctx, results[0])
	if err != nil {
		return cells.Cell{}, err
	}
	var reply wireformat.CallReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return cells.Cell{}, fmt.Errorf("host: decode reply from %q: %w", name, err)
	}

	if status := cells.Status(reply.Status); !status.OK() {
		if reply.Failure != nil {
			return cells.Cell{}, fmt.Errorf("host: call %q failed with status %s: %s",
				name, status, reply.Failure.Message)
		}
		return cells.Cell{}, fmt.Errorf("host: call %q failed with status %s", name, status)
	}
	return wireformat.DecodeCell(reply.Result)
}

// CallTransport queues the request messages on the link, invokes a
// structured-transport export and returns everything it wrote back.
func (l *Library) CallTransport(ctx context.Context, name string, requests ...[]byte) ([][]byte, error) {
	ctx = withInstance(ctx, l)

	l.mu.Lock()
	l.requests = nil
	l.replies = nil
	for _, r := range requests {
		cp := make([]byte, len(r))
		copy(cp, r)
		l.requests = append(l.requests, cp)
	}
	l.mu.Unlock()

	namePacked, err := l.writeToGuest(ctx, []byte(name))
	if err != nil {
		return nil, err
	}
	results, err := l.module.ExportedFunction("kernlink_call_transport").Call(ctx, namePacked)
	if err != nil {
		return nil, fmt.Errorf("host: transport call %q: %w", name, err)
	}

	l.mu.Lock()
	replies := l.replies
	l.replies = nil
	l.mu.Unlock()

	if len(results) > 0 {
		if status := cells.Status(uint32(results[0])); !status.OK() {
			return replies, fmt.Errorf("host: transport call %q failed with status %s", name, status)
		}
	}
	return replies, nil
}

// Catalog asks the library for its loading catalog under the given path.
func (l *Library) Catalog(ctx context.Context, libraryPath string) (wireformat.Catalog, error) {
	ctx = withInstance(ctx, l)

	fn := l.module.ExportedFunction("kernlink_catalog")
	if fn == nil {
		return wireformat.Catalog{}, fmt.Errorf("host: library does not export %q", "kernlink_catalog")
	}
	pathPacked, err := l.writeToGuest(ctx, []byte(libraryPath))
	if err != nil {
		return wireformat.Catalog{}, err
	}
	results, err := fn.Call(ctx, pathPacked)
	if err != nil {
		return wireformat.Catalog{}, fmt.Errorf("host: catalog: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return wireformat.Catalog{}, fmt.Errorf("host: catalog: empty reply")
	}
	raw, err := l.readFromGuest(ctx, results[0])
	if err != nil {
		return wireformat.Catalog{}, err
	}
	var cat wireformat.Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return wireformat.Catalog{}, fmt.Errorf("host: decode catalog: %w", err)
	}
	return cat, nil
}

func (l *Library) pendingRequests() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func (l *Library) popRequest() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.requests) == 0 {
		return nil
	}
	msg := l.requests[0]
	l.requests = l.requests[1:]
	return msg
}

func (l *Library) pushReply(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replies = append(l.replies, data)
}

func (l *Library) taskRemoved(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.removed == nil {
		l.removed = make(map[int64]bool)
	}
	l.removed[id] = true
}

// TaskRemoved reports whether the background context of the task with the
// given id has fully exited.
func (l *Library) TaskRemoved(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removed[id]
}

// writeToGuest allocates guest memory, copies data in and returns the
// packed offset.
func (l *Library) writeToGuest(ctx context.Context, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	results, err := l.module.ExportedFunction("allocate").Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("host: guest allocate: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, fmt.Errorf("host: guest allocate returned null")
	}
	ptr := uint32(results[0])
	if !l.module.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("host: write to guest memory at %#x", ptr)
	}
	return (uint64(ptr) << 32) | uint64(len(data)), nil
}

// readFromGuest copies a guest-pinned reply out and releases the pin.
func (l *Library) readFromGuest(ctx context.Context, packed uint64) ([]byte, error) {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	data, ok := l.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("host: read guest memory at %#x+%d", ptr, length)
	}
	out := make([]byte, length)
	copy(out, data)
	if _, err := l.module.ExportedFunction("deallocate").Call(ctx, uint64(ptr), uint64(length)); err != nil {
		return nil, fmt.Errorf("host: guest deallocate: %w", err)
	}
	return out, nil
}
