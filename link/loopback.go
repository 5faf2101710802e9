package link

import "sync"

// Loopback is an in-memory Link. The host side enqueues inbound messages
// with Push and collects replies with Written. Error injection lets tests
// exercise the poisoning and recovery paths of the dispatch layer.
//
// The guest-facing methods follow the Link contract (single caller); the
// host-facing helpers are safe to call from a different goroutine.
type Loopback struct {
	mu      sync.Mutex
	inbox   [][]byte
	outbox  [][]byte
	sticky  error
	nextErr error
	closed  bool
}

// NewLoopback returns a Loopback preloaded with the given inbound messages.
func NewLoopback(inbound ...[]byte) *Loopback {
	lb := &Loopback{}
	for _, m := range inbound {
		lb.inbox = append(lb.inbox, m)
	}
	return lb
}

// Push enqueues an inbound message, as the host would.
func (l *Loopback) Push(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox = append(l.inbox, data)
}

// Written returns the replies written so far, oldest first.
func (l *Loopback) Written() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.outbox))
	copy(out, l.outbox)
	return out
}

// FailNext makes the next read or write fail with err, poisoning the link.
func (l *Loopback) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextErr = err
}

// Poisoned returns the sticky error currently set, or nil.
func (l *Loopback) Poisoned() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sticky
}

// Close marks the link closed. Later operations fail with ErrClosed.
func (l *Loopback) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// checkErr consumes an injected error or returns the sticky one. Must be
// called with the lock held.
func (l *Loopback) checkErr() error {
	if l.closed {
		return ErrClosed
	}
	if l.sticky != nil {
		return l.sticky
	}
	if l.nextErr != nil {
		l.sticky = l.nextErr
		l.nextErr = nil
		return l.sticky
	}
	return nil
}

// ReadMessage implements Link.
func (l *Loopback) ReadMessage() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkErr(); err != nil {
		return nil, err
	}
	if len(l.inbox) == 0 {
		l.sticky = ErrNoMessage
		return nil, l.sticky
	}
	msg := l.inbox[0]
	l.inbox = l.inbox[1:]
	return msg, nil
}

// WriteMessage implements Link.
func (l *Loopback) WriteMessage(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkErr(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	l.outbox = append(l.outbox, cp)
	return nil
}

// Ready implements Link.
func (l *Loopback) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inbox) > 0
}

// Discard implements Link. Discarding works even on a poisoned link so the
// fault path can dispose of unread input.
func (l *Loopback) Discard() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if len(l.inbox) > 0 {
		l.inbox = l.inbox[1:]
	}
	return nil
}

// ClearError implements Link.
func (l *Loopback) ClearError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sticky = nil
	l.nextErr = nil
}
