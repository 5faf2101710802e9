package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		ptr, length uint32
	}{
		{"zero", 0, 0},
		{"small", 8, 16},
		{"high offset", 0xFFFF0000, 1},
		{"max length", 4, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr, length := UnpackPtrLen(PackPtrLen(tt.ptr, tt.length))
			assert.Equal(t, tt.ptr, ptr)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestPackRejectsNullWithLength(t *testing.T) {
	assert.Panics(t, func() { PackPtrLen(0, 4) })
	assert.Panics(t, func() { UnpackPtrLen(4) })
}
