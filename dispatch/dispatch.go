// Package dispatch builds the host-callable wrappers around user functions.
// A wrapper owns the full call frame: the init gate, argument marshaling,
// fault capture and the status code handed back to the host. Nothing a user
// function does, panicking included, escapes its wrapper.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/fault"
	"github.com/kernlink-dev/kernlink-sdk/library"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/marshal"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// NativeFunc is the shape of a generated native-mode wrapper: the host hands
// over its callback table, the argument cells and a result slot, and gets a
// status code back.
type NativeFunc func(d *library.Data, args []cells.Cell, res *cells.Cell) cells.Status

// TransportFunc is the shape of a generated structured-transport wrapper:
// arguments and results travel over the link instead of cell slots.
type TransportFunc func(d *library.Data, l link.Link) cells.Status

// RawFunc is the low-level native form: the function works on the cells
// directly, skipping typed marshaling. Raw functions accept any arity, so
// they have no host-describable signature.
type RawFunc func(args []cells.Cell, res *cells.Cell) error

// NativeWrapper wraps a user function for native-mode calls. fn is either a
// RawFunc or an ordinary function whose signature marshal.Probe accepts; any
// other value is rejected here, at registration time.
func NativeWrapper(fn any) (NativeFunc, error) {
	if raw, ok := fn.(func(args []cells.Cell, res *cells.Cell) error); ok {
		return wrapRaw(raw), nil
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("dispatch: %T is not a function", fn)
	}
	t := v.Type()
	if _, err := marshal.Probe(t); err != nil {
		return nil, fmt.Errorf("dispatch: unsupported signature %s: %w", t, err)
	}

	return func(d *library.Data, args []cells.Cell, res *cells.Cell) cells.Status {
		if err := library.Initialize(d); err != nil {
			return cells.StatusWrapperInitFailed
		}

		in, err := marshal.ConvertArgs(args, t)
		if err != nil {
			var arity *marshal.ArityError
			if errors.As(err, &arity) {
				return cells.StatusArityMismatch
			}
			return cells.StatusTypeMismatch
		}

		var out []reflect.Value
		if c := fault.Capture(func() { out = v.Call(in) }); c != nil {
			logFault(c)
			return cells.StatusPanic
		}

		var rv reflect.Value
		if len(out) == 1 {
			rv = out[0]
		}
		cell, err := marshal.IntoResult(rv)
		if err != nil {
			return cells.StatusTypeMismatch
		}
		*res = cell
		return cells.StatusNoError
	}, nil
}

func wrapRaw(fn RawFunc) NativeFunc {
	return func(d *library.Data, args []cells.Cell, res *cells.Cell) cells.Status {
		if err := library.Initialize(d); err != nil {
			return cells.StatusWrapperInitFailed
		}
		var callErr error
		if c := fault.Capture(func() { callErr = fn(args, res) }); c != nil {
			logFault(c)
			return cells.StatusPanic
		}
		if callErr != nil {
			return cells.StatusFunctionError
		}
		return cells.StatusNoError
	}
}

// TransportWrapper wraps a user function for structured-transport calls.
//
// On a fault or error the wrapper recovers the link before reporting: it
// clears any poisoned state, discards the unread remainder of the request,
// then writes the structured failure value so the host sees a well-formed
// reply. Only when that write itself fails does the wrapper fall back to the
// bare panic status.
func TransportWrapper(fn func(l link.Link) error) TransportFunc {
	return func(d *library.Data, l link.Link) cells.Status {
		if err := library.Initialize(d); err != nil {
			return cells.StatusWrapperInitFailed
		}

		var callErr error
		captured := fault.Capture(func() { callErr = fn(l) })
		if captured == nil && callErr == nil {
			return cells.StatusNoError
		}

		var f wireformat.Failure
		if captured != nil {
			logFault(captured)
			f = wireformat.FailureFromFault(captured)
		} else {
			f = wireformat.FailureFromError(callErr)
		}

		l.ClearError()
		if l.Ready() {
			if err := l.Discard(); err != nil {
				return cells.StatusPanic
			}
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return cells.StatusPanic
		}
		if err := l.WriteMessage(raw); err != nil {
			return cells.StatusPanic
		}
		return cells.StatusNoError
	}
}

func logFault(c *fault.Captured) {
	attrs := []any{slog.String("message", c.Message)}
	if c.HasLocation() {
		attrs = append(attrs, slog.String("file", c.File), slog.Int("line", c.Line))
	}
	slog.Error("uncaught fault in exported function", attrs...)
}
