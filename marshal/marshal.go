// Package marshal converts the host's raw argument cells into typed native
// values and native return values back into cells. Conversions are strict:
// a wrong type tag or an out-of-range numeric narrowing rejects the call
// instead of truncating.
package marshal

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
)

// ArityError reports a call supplied with the wrong number of argument
// cells. No user code runs when it is returned.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("marshal: arity mismatch: function takes %d arguments, got %d", e.Want, e.Got)
}

// TypeError reports a cell whose runtime tag or value does not fit the
// expected native type. Index is -1 for the return value.
type TypeError struct {
	Index    int
	Expected string
	Got      cells.Tag
	Detail   string
}

func (e *TypeError) Error() string {
	where := fmt.Sprintf("argument %d", e.Index)
	if e.Index < 0 {
		where = "return value"
	}
	msg := fmt.Sprintf("marshal: type mismatch at %s: expected %s, got %s", where, e.Expected, e.Got)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ErrUnrepresentable marks a signature that cannot be described in the
// host's declaration language. The registry recovers from it by omitting
// the function from the generated catalog.
var ErrUnrepresentable = errors.New("marshal: signature not representable in host declarations")

var (
	typeArray  = reflect.TypeOf((*cells.Array)(nil)).Elem()
	typePassed = reflect.TypeOf(cells.PassedArray{})
	typeStore  = reflect.TypeOf((*datastore.DataStore)(nil))
)

// CheckArity validates the declared arity against the actual cell count.
func CheckArity(want, got int) error {
	if want != got {
		return &ArityError{Want: want, Got: got}
	}
	return nil
}

// FromCell converts one argument cell to a value of the native type t.
func FromCell(c cells.Cell, t reflect.Type, index int) (reflect.Value, error) {
	mismatch := func(detail string) (reflect.Value, error) {
		return reflect.Value{}, &TypeError{Index: index, Expected: t.String(), Got: c.Tag(), Detail: detail}
	}

	switch t.Kind() {
	case reflect.Bool:
		v, ok := c.AsBool()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, ok := c.AsInt()
		if !ok {
			return mismatch("")
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowInt(v) {
			return mismatch(fmt.Sprintf("value %d out of range", v))
		}
		rv.SetInt(v)
		return rv, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, ok := c.AsInt()
		if !ok {
			return mismatch("")
		}
		if v < 0 {
			return mismatch(fmt.Sprintf("value %d out of range", v))
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowUint(uint64(v)) {
			return mismatch(fmt.Sprintf("value %d out of range", v))
		}
		rv.SetUint(uint64(v))
		return rv, nil

	case reflect.Float64:
		v, ok := c.AsReal()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v), nil

	case reflect.Float32:
		v, ok := c.AsReal()
		if !ok {
			return mismatch("")
		}
		if !fitsFloat32(v) {
			return mismatch(fmt.Sprintf("value %g out of range", v))
		}
		return reflect.ValueOf(float32(v)), nil

	case reflect.Complex128:
		v, ok := c.AsComplex()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v), nil

	case reflect.Complex64:
		v, ok := c.AsComplex()
		if !ok {
			return mismatch("")
		}
		if !fitsFloat32(real(v)) || !fitsFloat32(imag(v)) {
			return mismatch(fmt.Sprintf("value %v out of range", v))
		}
		return reflect.ValueOf(complex64(v)), nil

	case reflect.String:
		v, ok := c.AsString()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v), nil
	}

	switch t {
	case typePassed:
		v, ok := c.AsNumericArray()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v), nil
	case typeStore:
		v, ok := c.AsDataStore()
		if !ok {
			return mismatch("")
		}
		ds, ok := v.(*datastore.DataStore)
		if !ok {
			return mismatch("foreign Store implementation")
		}
		return reflect.ValueOf(ds), nil
	}

	if t == typeArray {
		v, ok := c.AsNumericArray()
		if !ok {
			return mismatch("")
		}
		return reflect.ValueOf(v.Array), nil
	}

	return mismatch("unsupported native parameter type")
}

// fitsFloat32 reports whether v survives a round trip through float32
// without overflowing to infinity. NaN and infinities pass through.
func fitsFloat32(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return true
	}
	f := float32(v)
	return !math.IsInf(float64(f), 0)
}

// IntoResult converts a native return value into its result cell. An
// invalid value (function with no return) becomes the void cell. A
// DataStore result is sealed: ownership transfers to the host. A nil
// DataStore carries nothing and also becomes the void cell.
func IntoResult(v reflect.Value) (cells.Cell, error) {
	if !v.IsValid() {
		return cells.Empty(), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return cells.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cells.Int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return cells.Cell{}, &TypeError{Index: -1, Expected: "Integer", Got: cells.TagInteger,
				Detail: fmt.Sprintf("value %d overflows the host integer", u)}
		}
		return cells.Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return cells.Real(v.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		return cells.Complex(v.Complex()), nil
	case reflect.String:
		return cells.String(v.String()), nil
	}

	switch v.Type() {
	case typePassed:
		p := v.Interface().(cells.PassedArray)
		return cells.NumericArray(p.Array, p.Mode), nil
	case typeStore:
		ds := v.Interface().(*datastore.DataStore)
		if ds == nil {
			return cells.Empty(), nil
		}
		ds.Seal()
		return cells.DataStore(ds), nil
	}

	if v.Type().Implements(typeArray) {
		return cells.NumericArray(v.Interface().(cells.Array), cells.PassManual), nil
	}

	return cells.Cell{}, &TypeError{Index: -1, Expected: v.Type().String(), Got: cells.TagEmpty,
		Detail: "unsupported native return type"}
}

// ConvertArgs validates arity and converts every argument cell for a call
// to a function of type t.
func ConvertArgs(args []cells.Cell, t reflect.Type) ([]reflect.Value, error) {
	if err := CheckArity(t.NumIn(), len(args)); err != nil {
		return nil, err
	}
	in := make([]reflect.Value, len(args))
	for i, c := range args {
		v, err := FromCell(c, t.In(i), i)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return in, nil
}
