// Package link defines the structured-message transport contract between an
// extension library and its host evaluator.
//
// A structured-transport call reads exactly one pending message and writes
// exactly one reply. A failed read or write poisons the link: every later
// operation fails with the same error until ClearError is called. The
// dispatch layer clears poisoning and discards unread input before writing a
// failure value, so a faulted call never leaves the link unusable for the
// next one.
//
// Real transports are host collaborators; this package ships only the
// contract and an in-memory Loopback used by tests and in-process hosts.
package link

import "errors"

// ErrNoMessage is returned by ReadMessage when no inbound message is pending.
var ErrNoMessage = errors.New("link: no pending message")

// ErrClosed is returned by operations on a closed link.
var ErrClosed = errors.New("link: closed")

// Link is a bidirectional structured-message connection to the host.
// Messages are opaque byte payloads; this module exchanges JSON values.
//
// A Link is not safe for concurrent use. Each call and each async task must
// use the access path the host designated for it.
type Link interface {
	// ReadMessage dequeues and returns the next pending inbound message.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one message to the host.
	WriteMessage(data []byte) error

	// Ready reports whether an inbound message is pending.
	Ready() bool

	// Discard drops the pending inbound message, if any. Used by the fault
	// path to dispose of input a failed call never consumed.
	Discard() error

	// ClearError resets a poisoned link. No-op when no error is set.
	ClearError()
}
