// Package abi implements the guest side of the packed-pointer calling
// convention: byte payloads cross the boundary as a single uint64 with the
// linear-memory offset in the high 32 bits and the length in the low 32.
package abi

import "fmt"

// PackPtrLen packs an offset and length into one uint64.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: packing null pointer with length %d", length))
	}
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen splits a packed value back into offset and length.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: unpacking null pointer with length %d", length))
	}
	return ptr, length
}
