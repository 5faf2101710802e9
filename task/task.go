// Package task runs background work that outlives the host call which
// started it. Each task carries a host-assigned id and an atomic liveness
// flag; the flag transitions from true to false at most once, when the host
// retires the task or its work function returns.
//
// A fault in a task's work function is captured and treated as an implicit
// retire: the task is torn down cleanly and the fault is logged, never
// unwound into the host.
package task

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/fault"
	"github.com/kernlink-dev/kernlink-sdk/library"
)

// ErrRetired is returned when an event is raised on a task whose liveness
// flag has already dropped.
var ErrRetired = errors.New("task: task is retired")

// ErrUnavailable is returned by Spawn when the host did not supply the
// async callbacks.
var ErrUnavailable = errors.New("task: async callbacks unavailable")

// Task is a handle to one background task, valid inside its work function.
type Task struct {
	id    int64
	alive atomic.Bool
	lib   *library.Data
}

// ID returns the host-assigned task id.
func (t *Task) ID() int64 { return t.id }

// IsAlive reports whether the task is still wanted. Work functions poll it
// and return promptly once it drops.
func (t *Task) IsAlive() bool { return t.alive.Load() }

// RaiseEvent posts a named event with its payload to the host. The liveness
// check comes first so a retired task raises nothing; the payload is sealed
// here because ownership transfers to the host on a successful raise.
func (t *Task) RaiseEvent(name string, payload *datastore.DataStore) error {
	if !t.IsAlive() {
		return ErrRetired
	}
	if payload != nil {
		payload.Seal()
	}
	return t.lib.RaiseAsyncEvent(t.id, name, payload)
}

var (
	tableMu sync.Mutex
	table   = make(map[int64]*Task)
)

// Spawn starts work on its own goroutine and returns the host-assigned task
// id. The work function must poll t.IsAlive and return once it drops.
func Spawn(work func(t *Task)) (int64, error) {
	d, err := library.Get()
	if err != nil {
		return 0, err
	}
	if d.NewAsyncTaskID == nil || d.RaiseAsyncEvent == nil {
		return 0, ErrUnavailable
	}

	t := &Task{id: d.NewAsyncTaskID(), lib: d}
	t.alive.Store(true)

	tableMu.Lock()
	table[t.id] = t
	tableMu.Unlock()

	go func() {
		defer func() {
			t.alive.Store(false)
			tableMu.Lock()
			delete(table, t.id)
			tableMu.Unlock()
			if d.RemoveAsyncTask != nil {
				d.RemoveAsyncTask(t.id)
			}
		}()
		if c := fault.Capture(func() { work(t) }); c != nil {
			slog.Error("background task aborted", "task_id", t.id, "fault", c.Error())
		}
	}()
	return t.id, nil
}

// Retire drops the liveness flag of the task with the given id, as the host
// does when the task is removed. The work function observes the drop and
// exits; full teardown is reported once its goroutine returns. Retiring an
// unknown or already-finished task is a no-op.
func Retire(id int64) {
	tableMu.Lock()
	t := table[id]
	tableMu.Unlock()
	if t != nil {
		t.alive.Store(false)
	}
}

// IsAlive reports the liveness of the task with the given id. Unknown ids
// are not alive.
func IsAlive(id int64) bool {
	tableMu.Lock()
	t := table[id]
	tableMu.Unlock()
	return t != nil && t.IsAlive()
}
