// Package library holds the process-wide handle to the host evaluator: the
// set of callbacks the host supplies when it loads the library.
//
// The handle is established exactly once, on the first call from the host,
// and is read-only afterwards. It is torn down only at process exit, so the
// host thread and any number of async task threads may read it concurrently
// without locking.
package library

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/log/logwire"
)

// ErrNotInitialized is returned when the handle is read before the host's
// first call established it.
var ErrNotInitialized = errors.New("library: not initialized")

// Data is the immutable capability struct built from the host's callback
// pointers. Required callbacks are checked once at initialization; the
// async and logging callbacks are optional and gate the corresponding
// subsystems.
type Data struct {
	// AbortQ reports whether the host asked for the current evaluation to
	// be aborted. Long-running user code should poll it and return early.
	AbortQ func() bool

	// NewLink acquires the structured-message link to the host.
	NewLink func() (link.Link, error)

	// ProcessLink asks the host to process a packet pending on the link.
	ProcessLink func(l link.Link) error

	// NewAsyncTaskID allocates a fresh host-assigned task id. Required for
	// the async task subsystem.
	NewAsyncTaskID func() int64

	// RemoveAsyncTask tells the host a task's background context has fully
	// exited. Optional.
	RemoveAsyncTask func(id int64)

	// RaiseAsyncEvent posts a named event with its payload to the host on
	// the access path designated for the given task.
	RaiseAsyncEvent func(id int64, name string, payload *datastore.DataStore) error

	// LogMessage forwards a structured log record to the host. Optional;
	// without it the SDK logs to stderr.
	LogMessage func(msg logwire.Message)
}

// Aborted reports whether the host requested an abort. Safe on a nil-AbortQ
// handle (returns false).
func (d *Data) Aborted() bool {
	if d == nil || d.AbortQ == nil {
		return false
	}
	return d.AbortQ()
}

func (d *Data) validate() error {
	switch {
	case d == nil:
		return errors.New("library: nil data")
	case d.AbortQ == nil:
		return errors.New("library: AbortQ callback is required")
	case d.NewLink == nil:
		return errors.New("library: NewLink callback is required")
	case d.ProcessLink == nil:
		return errors.New("library: ProcessLink callback is required")
	}
	return nil
}

var (
	initMu  sync.Mutex
	current atomic.Pointer[Data]
)

// Initialize installs the host's callbacks as the process-wide handle. The
// first successful call wins; later calls are no-ops and return nil, so
// every generated wrapper can call Initialize unconditionally. An invalid
// handle fails without installing anything.
func Initialize(d *Data) error {
	if current.Load() != nil {
		return nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if current.Load() != nil {
		return nil
	}
	if err := d.validate(); err != nil {
		return fmt.Errorf("library: initialize: %w", err)
	}
	current.Store(d)
	return nil
}

// Get returns the process-wide handle, or ErrNotInitialized before the
// host's first call.
func Get() (*Data, error) {
	d := current.Load()
	if d == nil {
		return nil, ErrNotInitialized
	}
	return d, nil
}

// Initialized reports whether the handle has been established.
func Initialized() bool { return current.Load() != nil }
