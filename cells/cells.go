// Package cells defines the raw tagged argument and result slots exchanged
// with the host evaluator, the ownership modes for host-managed arrays, and
// the status codes exported functions return across the call boundary.
package cells

import (
	"fmt"
	"strconv"
)

// Tag identifies the runtime type carried by a Cell.
type Tag uint8

const (
	TagEmpty Tag = iota
	TagBoolean
	TagInteger
	TagReal
	TagComplex
	TagString
	TagNumericArray
	TagDataStore
)

// String returns the host-facing name of the tag.
func (t Tag) String() string {
	switch t {
	case TagEmpty:
		return "Void"
	case TagBoolean:
		return "Boolean"
	case TagInteger:
		return "Integer"
	case TagReal:
		return "Real"
	case TagComplex:
		return "Complex"
	case TagString:
		return "String"
	case TagNumericArray:
		return "NumericArray"
	case TagDataStore:
		return "DataStore"
	default:
		return "Tag(" + strconv.Itoa(int(t)) + ")"
	}
}

// Store is implemented by the structured payload container carried in a
// DataStore cell. The concrete builder lives in package datastore; keeping
// an interface here avoids an import cycle between cells and datastore.
type Store interface {
	Len() int
	Sealed() bool
}

// Cell is a single raw, tagged argument or result slot passed across the
// call boundary. A cell carries exactly one value identified by its tag.
// The zero Cell is the empty (void) cell.
type Cell struct {
	tag     Tag
	boolean bool
	integer int64
	real    float64
	cmplx   complex128
	str     string
	array   PassedArray
	store   Store
}

// Empty returns the void cell used as the result slot of functions that
// return nothing.
func Empty() Cell { return Cell{} }

// Bool returns a boolean cell.
func Bool(v bool) Cell { return Cell{tag: TagBoolean, boolean: v} }

// Int returns an integer cell. Host integers are always 64-bit; narrowing
// to smaller native types happens during marshaling.
func Int(v int64) Cell { return Cell{tag: TagInteger, integer: v} }

// Real returns a real (64-bit float) cell.
func Real(v float64) Cell { return Cell{tag: TagReal, real: v} }

// Complex returns a complex cell.
func Complex(v complex128) Cell { return Cell{tag: TagComplex, cmplx: v} }

// String returns a string cell.
func String(v string) Cell { return Cell{tag: TagString, str: v} }

// NumericArray returns a numeric-array cell carrying the ownership mode the
// caller declared for the argument.
func NumericArray(a Array, mode PassMode) Cell {
	return Cell{tag: TagNumericArray, array: PassedArray{Array: a, Mode: mode}}
}

// DataStore returns a cell carrying a structured payload container.
func DataStore(s Store) Cell { return Cell{tag: TagDataStore, store: s} }

// Tag returns the runtime type tag of the cell.
func (c Cell) Tag() Tag { return c.tag }

// IsEmpty reports whether the cell is the void cell.
func (c Cell) IsEmpty() bool { return c.tag == TagEmpty }

// AsBool returns the boolean value, or false if the tag does not match.
func (c Cell) AsBool() (bool, bool) { return c.boolean, c.tag == TagBoolean }

// AsInt returns the integer value, or false if the tag does not match.
func (c Cell) AsInt() (int64, bool) { return c.integer, c.tag == TagInteger }

// AsReal returns the real value, or false if the tag does not match.
func (c Cell) AsReal() (float64, bool) { return c.real, c.tag == TagReal }

// AsComplex returns the complex value, or false if the tag does not match.
func (c Cell) AsComplex() (complex128, bool) { return c.cmplx, c.tag == TagComplex }

// AsString returns the string value, or false if the tag does not match.
func (c Cell) AsString() (string, bool) { return c.str, c.tag == TagString }

// AsNumericArray returns the passed array, or false if the tag does not match.
func (c Cell) AsNumericArray() (PassedArray, bool) { return c.array, c.tag == TagNumericArray }

// AsDataStore returns the payload container, or false if the tag does not match.
func (c Cell) AsDataStore() (Store, bool) { return c.store, c.tag == TagDataStore }

// Value returns the carried value boxed as any, for diagnostics.
func (c Cell) Value() any {
	switch c.tag {
	case TagBoolean:
		return c.boolean
	case TagInteger:
		return c.integer
	case TagReal:
		return c.real
	case TagComplex:
		return c.cmplx
	case TagString:
		return c.str
	case TagNumericArray:
		return c.array
	case TagDataStore:
		return c.store
	default:
		return nil
	}
}

// String implements fmt.Stringer for diagnostics.
func (c Cell) String() string {
	if c.tag == TagEmpty {
		return "Cell(Void)"
	}
	return fmt.Sprintf("Cell(%s: %v)", c.tag, c.Value())
}
