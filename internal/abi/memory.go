//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// MaxLiveBytes caps the memory pinned for the host at any one time. A call
// that would exceed it panics, which the dispatch layer reports as a fault
// instead of letting linear memory grow without bound.
const MaxLiveBytes = 64 * 1024 * 1024

// allocations pins every buffer handed to the host so the GC cannot move or
// collect it while the host still holds the offset.
var allocations = struct {
	sync.Mutex
	pinned map[uint32][]byte
	live   int
}{pinned: make(map[uint32][]byte)}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	allocations.Lock()
	defer allocations.Unlock()
	if allocations.live+int(size) > MaxLiveBytes {
		panic(fmt.Sprintf("abi: allocation of %d bytes exceeds the %d byte pin limit (%d live)",
			size, MaxLiveBytes, allocations.live))
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	allocations.pinned[ptr] = buf
	allocations.live += int(size)
	return ptr
}

//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	allocations.Lock()
	defer allocations.Unlock()
	buf, ok := allocations.pinned[ptr]
	if !ok {
		return
	}
	delete(allocations.pinned, ptr)
	// Account with the pinned length, not the caller's size argument.
	allocations.live -= len(buf)
	if allocations.live < 0 {
		allocations.live = 0
	}
}

// ReleaseAll unpins everything. The call exports invoke it after a faulted
// call so buffers pinned mid-flight do not accumulate.
func ReleaseAll() {
	allocations.Lock()
	defer allocations.Unlock()
	clear(allocations.pinned)
	allocations.live = 0
}

// PtrFromBytes pins a copy of data in linear memory and returns its packed
// offset and length for the host to read.
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	size := uint32(len(data))
	ptr := allocate(size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), len(data))
	copy(dst, data)
	return PackPtrLen(ptr, size)
}

// BytesFromPtr copies the bytes a packed host value points at out of linear
// memory.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	out := make([]byte, length)
	copy(out, src)
	return out
}

// Release unpins the buffer behind a packed value once the host is done
// with it.
func Release(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		deallocate(ptr, length)
	}
}
