//go:build wasip1

package link

import (
	"fmt"

	"github.com/kernlink-dev/kernlink-sdk/internal/abi"
)

//go:wasmimport kernlink_host link_read
func hostLinkRead() uint64

//go:wasmimport kernlink_host link_write
func hostLinkWrite(packed uint64) uint32

//go:wasmimport kernlink_host link_ready
func hostLinkReady() uint32

//go:wasmimport kernlink_host link_discard
func hostLinkDiscard() uint32

//go:wasmimport kernlink_host link_clear
func hostLinkClear()

// hostLink is the Link backed by the host's message queue. Offsets cross
// the boundary packed; payload buffers are pinned only for the duration of
// one operation.
type hostLink struct {
	poisoned error
}

// Host returns the link to the host evaluator.
func Host() Link {
	return &hostLink{}
}

func (h *hostLink) ReadMessage() ([]byte, error) {
	if h.poisoned != nil {
		return nil, h.poisoned
	}
	packed := hostLinkRead()
	if packed == 0 {
		h.poisoned = ErrNoMessage
		return nil, h.poisoned
	}
	data := abi.BytesFromPtr(packed)
	abi.Release(packed)
	return data, nil
}

func (h *hostLink) WriteMessage(data []byte) error {
	if h.poisoned != nil {
		return h.poisoned
	}
	packed := abi.PtrFromBytes(data)
	rc := hostLinkWrite(packed)
	abi.Release(packed)
	if rc != 0 {
		h.poisoned = fmt.Errorf("link: host rejected write (code %d)", rc)
		return h.poisoned
	}
	return nil
}

func (h *hostLink) Ready() bool {
	return hostLinkReady() != 0
}

func (h *hostLink) Discard() error {
	if rc := hostLinkDiscard(); rc != 0 {
		return ErrClosed
	}
	return nil
}

func (h *hostLink) ClearError() {
	h.poisoned = nil
	hostLinkClear()
}
