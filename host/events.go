package host

import (
	"sync/atomic"

	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// EventBuffer is the bounded queue between a library's background tasks and
// the host application. Publishing never blocks the guest: when the buffer
// is full the event is dropped and counted instead.
type EventBuffer struct {
	ch      chan wireformat.Event
	dropped atomic.Uint64
}

// NewEventBuffer returns a buffer holding up to capacity pending events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &EventBuffer{ch: make(chan wireformat.Event, capacity)}
}

// Publish enqueues ev, dropping it if the buffer is full.
func (b *EventBuffer) Publish(ev wireformat.Event) {
	select {
	case b.ch <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Events returns the receive side of the buffer.
func (b *EventBuffer) Events() <-chan wireformat.Event {
	return b.ch
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (b *EventBuffer) Dropped() uint64 {
	return b.dropped.Load()
}
