package cells

import "errors"

// PassMode declares who owns a numeric array passed across the call
// boundary, and therefore who is responsible for releasing it.
type PassMode uint8

const (
	// PassConstant marks the array read-only and host-owned. The callee
	// must not mutate or release it.
	PassConstant PassMode = iota
	// PassManual transfers ownership to the callee, which must release the
	// array when done with it.
	PassManual
	// PassShared marks the array host-tracked and shared. The callee may
	// read it but must not release it; the host reclaims it.
	PassShared
)

// String returns the host-facing name of the mode.
func (m PassMode) String() string {
	switch m {
	case PassConstant:
		return "Constant"
	case PassManual:
		return "Manual"
	case PassShared:
		return "Shared"
	default:
		return "PassMode(?)"
	}
}

// Array is the numeric-array collaborator. Element codecs live with the
// host bindings, not in this module; the SDK only moves handles around and
// routes release responsibility.
type Array interface {
	// ElementType names the element type ("Integer64", "Real64", ...).
	ElementType() string
	// Len returns the flattened element count.
	Len() int
	// Release frees the underlying host allocation. Called at most once.
	Release() error
}

// ErrHostOwned is returned by PassedArray.Release when the array is owned
// or tracked by the host and must not be released by the callee.
var ErrHostOwned = errors.New("cells: numeric array is host-owned")

// PassedArray couples a numeric array with the ownership mode the caller
// declared for it. Marshaling records the mode so release responsibility
// is routed correctly.
type PassedArray struct {
	Array Array
	Mode  PassMode
}

// Release frees the array if and only if this side owns it. For Constant
// and Shared arrays it returns ErrHostOwned without touching the array.
func (p PassedArray) Release() error {
	if p.Mode != PassManual {
		return ErrHostOwned
	}
	if p.Array == nil {
		return nil
	}
	return p.Array.Release()
}
