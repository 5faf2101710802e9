package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/kernlink-dev/kernlink-sdk/log/logwire"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// instanceKey carries the active *Library through the call context so the
// host functions can reach its state. Every entry into the guest goes
// through Library.withInstance, which sets it.
type instanceKey struct{}

func withInstance(ctx context.Context, lib *Library) context.Context {
	return context.WithValue(ctx, instanceKey{}, lib)
}

func instanceFrom(ctx context.Context) *Library {
	lib, _ := ctx.Value(instanceKey{}).(*Library)
	return lib
}

func (e *Executor) registerHostModule(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder("kernlink_host")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			if lib := instanceFrom(ctx); lib != nil && lib.aborted.Load() {
				return 1
			}
			return 0
		}).
		Export("abort_query")

	// The loopback host processes link packets synchronously as they are
	// written, so there is never a pending packet to drive.
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 { return 0 }).
		Export("process_link")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint64 {
			lib := instanceFrom(ctx)
			if lib == nil {
				return 0
			}
			return uint64(lib.nextTaskID.Add(1))
		}).
		Export("new_async_task")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, id uint64) {
			if lib := instanceFrom(ctx); lib != nil {
				lib.taskRemoved(int64(id))
			}
		}).
		Export("remove_async_task")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, id, name, payload uint64) uint32 {
			lib := instanceFrom(ctx)
			if lib == nil {
				return 1
			}
			ev := wireformat.Event{TaskID: int64(id), Raised: time.Now()}
			nameBytes, ok := readPacked(m, name)
			if !ok {
				return 1
			}
			ev.Name = string(nameBytes)
			if payload != 0 {
				raw, ok := readPacked(m, payload)
				if !ok {
					return 1
				}
				ev.Payload = json.RawMessage(raw)
			}
			lib.events.Publish(ev)
			return 0
		}).
		Export("raise_async_event")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			raw, ok := readPacked(m, packed)
			if !ok {
				return
			}
			var msg logwire.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				e.logger.Info("library log", "payload", string(raw))
				return
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(msg.Level)); err != nil {
				level = slog.LevelInfo
			}
			attrs := make([]any, 0, len(msg.Attrs))
			for _, a := range msg.Attrs {
				attrs = append(attrs, slog.String(a.Key, a.Value))
			}
			e.logger.Log(ctx, level, msg.Message, attrs...)
		}).
		Export("log_message")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module) uint64 {
			lib := instanceFrom(ctx)
			if lib == nil {
				return 0
			}
			msg := lib.popRequest()
			if msg == nil || uint32(len(msg)) > e.maxMessageSize {
				return 0
			}
			packed, err := lib.writeToGuest(ctx, msg)
			if err != nil {
				return 0
			}
			return packed
		}).
		Export("link_read")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) uint32 {
			lib := instanceFrom(ctx)
			if lib == nil {
				return 1
			}
			raw, ok := readPacked(m, packed)
			if !ok || uint32(len(raw)) > e.maxMessageSize {
				return 1
			}
			lib.pushReply(raw)
			return 0
		}).
		Export("link_write")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			if lib := instanceFrom(ctx); lib != nil && lib.pendingRequests() > 0 {
				return 1
			}
			return 0
		}).
		Export("link_ready")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			if lib := instanceFrom(ctx); lib != nil {
				lib.popRequest()
			}
			return 0
		}).
		Export("link_discard")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) {}).
		Export("link_clear")

	_, err := builder.Instantiate(ctx)
	return err
}

// readPacked copies a packed offset/length out of guest memory.
func readPacked(m api.Module, packed uint64) ([]byte, bool) {
	ptr := uint32(packed >> 32)
	length := uint32(packed)
	if ptr == 0 || length == 0 {
		return nil, false
	}
	data, ok := m.Memory().Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, data)
	return out, true
}
