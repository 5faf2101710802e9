// Package libtest runs exported functions against a fake evaluator inside
// ordinary Go tests: no compiled module, no real host. The fake hands out
// task ids, records raised events and exposes a controllable loopback link.
//
// The process-wide library handle is established once per test binary, by
// the first Install call; later calls reuse the same fake and only reset
// its recorded state.
package libtest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/library"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/log/logwire"
	"github.com/kernlink-dev/kernlink-sdk/registry"
)

// Event is one async event the fake evaluator received.
type Event struct {
	TaskID  int64
	Name    string
	Payload *datastore.DataStore
}

// Host is the fake evaluator.
type Host struct {
	mu      sync.Mutex
	events  []Event
	removed map[int64]bool
	logs    []logwire.Message
	link    *link.Loopback

	nextID  atomic.Int64
	aborted atomic.Bool
}

var (
	installOnce sync.Once
	shared      *Host
)

// Install wires the fake evaluator into the process-wide library handle and
// returns it with freshly reset state.
func Install(t testing.TB) *Host {
	t.Helper()
	installOnce.Do(func() {
		shared = &Host{}
		require.NoError(t, library.Initialize(shared.data()))
	})
	shared.Reset()
	return shared
}

func (h *Host) data() *library.Data {
	return &library.Data{
		AbortQ:         func() bool { return h.aborted.Load() },
		NewLink:        func() (link.Link, error) { return h.Link(), nil },
		ProcessLink:    func(link.Link) error { return nil },
		NewAsyncTaskID: func() int64 { return h.nextID.Add(1) },
		RemoveAsyncTask: func(id int64) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.removed == nil {
				h.removed = make(map[int64]bool)
			}
			h.removed[id] = true
		},
		RaiseAsyncEvent: func(id int64, name string, payload *datastore.DataStore) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, Event{TaskID: id, Name: name, Payload: payload})
			return nil
		},
		LogMessage: func(msg logwire.Message) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.logs = append(h.logs, msg)
		},
	}
}

// Reset clears everything a previous test recorded and installs a fresh
// loopback link.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
	h.removed = nil
	h.logs = nil
	h.link = link.NewLoopback()
	h.aborted.Store(false)
}

// Link returns the current loopback link; transport calls made through this
// package use it.
func (h *Host) Link() *link.Loopback {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.link
}

// SetAborted flips the abort flag that AbortQ reports.
func (h *Host) SetAborted(v bool) { h.aborted.Store(v) }

// Events returns a copy of the recorded async events, oldest first.
func (h *Host) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Logs returns a copy of the log records forwarded so far.
func (h *Host) Logs() []logwire.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]logwire.Message, len(h.logs))
	copy(out, h.logs)
	return out
}

// TaskRemoved reports whether the task's background context fully exited.
func (h *Host) TaskRemoved(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed[id]
}

// WaitEvent blocks until an event with the given name arrives or the
// timeout expires.
func (h *Host) WaitEvent(t testing.TB, name string, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		for _, ev := range h.Events() {
			if ev.Name == name {
				return ev
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("libtest: no %q event within %v", name, timeout)
			return Event{}
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// WaitTaskRemoved blocks until the task's teardown is reported or the
// timeout expires.
func (h *Host) WaitTaskRemoved(t testing.TB, id int64, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return h.TaskRemoved(id) }, timeout, 2*time.Millisecond,
		"libtest: task %d was not removed within %v", id, timeout)
}

// CallStatus invokes a registered native function and returns its result
// cell and status.
func CallStatus(t testing.TB, name string, args ...cells.Cell) (cells.Cell, cells.Status) {
	t.Helper()
	h := Install(t)
	entry, ok := registry.Lookup(name)
	require.True(t, ok, "libtest: %q is not exported", name)
	require.Equal(t, registry.KindNative, entry.Kind, "libtest: %q is not a native function", name)

	var res cells.Cell
	status := entry.Native(h.data(), args, &res)
	return res, status
}

// Call invokes a registered native function and fails the test unless it
// succeeds.
func Call(t testing.TB, name string, args ...cells.Cell) cells.Cell {
	t.Helper()
	res, status := CallStatus(t, name, args...)
	require.True(t, status.OK(), "libtest: call %q returned status %s", name, status)
	return res
}

// CallTransport invokes a registered transport function with the given
// request messages queued on a fresh loopback link, returning the replies
// it wrote and its status.
func CallTransport(t testing.TB, name string, requests ...[]byte) ([][]byte, cells.Status) {
	t.Helper()
	h := Install(t)
	entry, ok := registry.Lookup(name)
	require.True(t, ok, "libtest: %q is not exported", name)
	require.Equal(t, registry.KindTransport, entry.Kind, "libtest: %q is not a transport function", name)

	lb := link.NewLoopback(requests...)
	h.mu.Lock()
	h.link = lb
	h.mu.Unlock()

	status := entry.Transport(h.data(), lb)
	return lb.Written(), status
}
