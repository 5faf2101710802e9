package marshal

import (
	"fmt"
	"reflect"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// Signature is the host-facing description of a native function: one
// declaration entry per parameter plus the return type name.
type Signature struct {
	Params []wireformat.ParamDecl
	Return string
}

// Probe derives the host declaration for a function type. Functions whose
// parameters or results have no host type name return ErrUnrepresentable;
// the registry omits those from the generated catalog.
func Probe(t reflect.Type) (Signature, error) {
	if t.Kind() != reflect.Func {
		return Signature{}, fmt.Errorf("%w: %s is not a function", ErrUnrepresentable, t)
	}
	if t.IsVariadic() {
		return Signature{}, fmt.Errorf("%w: variadic functions have no fixed arity", ErrUnrepresentable)
	}

	sig := Signature{Params: make([]wireformat.ParamDecl, 0, t.NumIn())}
	for i := 0; i < t.NumIn(); i++ {
		decl, err := paramDecl(t.In(i))
		if err != nil {
			return Signature{}, fmt.Errorf("parameter %d: %w", i, err)
		}
		sig.Params = append(sig.Params, decl)
	}

	switch t.NumOut() {
	case 0:
		sig.Return = "Void"
	case 1:
		name, err := hostTypeName(t.Out(0))
		if err != nil {
			return Signature{}, fmt.Errorf("return value: %w", err)
		}
		sig.Return = name
	default:
		return Signature{}, fmt.Errorf("%w: multiple return values", ErrUnrepresentable)
	}
	return sig, nil
}

func paramDecl(t reflect.Type) (wireformat.ParamDecl, error) {
	switch t {
	case typePassed:
		// The mode a PassedArray parameter arrives with is decided by the
		// caller; the declaration advertises manual passing.
		return wireformat.ParamDecl{Type: "NumericArray", Mode: cells.PassManual.String()}, nil
	case typeArray:
		return wireformat.ParamDecl{Type: "NumericArray", Mode: cells.PassConstant.String()}, nil
	}
	name, err := hostTypeName(t)
	if err != nil {
		return wireformat.ParamDecl{}, err
	}
	return wireformat.ParamDecl{Type: name}, nil
}

// hostTypeName maps a native type onto the host's declaration vocabulary.
func hostTypeName(t reflect.Type) (string, error) {
	switch t.Kind() {
	case reflect.Bool:
		return "Boolean", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "Integer", nil
	case reflect.Float32, reflect.Float64:
		return "Real", nil
	case reflect.Complex64, reflect.Complex128:
		return "Complex", nil
	case reflect.String:
		return "String", nil
	}
	switch t {
	case typePassed, typeArray:
		return "NumericArray", nil
	case typeStore:
		return "DataStore", nil
	}
	if t.Implements(typeArray) {
		return "NumericArray", nil
	}
	return "", fmt.Errorf("%w: no host type for %s", ErrUnrepresentable, t)
}
