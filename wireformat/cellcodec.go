package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
)

// cellWire is the JSON shape of a single cell.
type cellWire struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value,omitempty"`
}

type complexWire struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// EncodeCell renders one cell as JSON. Numeric-array cells are not
// wire-encodable: their codec is a host collaborator.
func EncodeCell(c cells.Cell) ([]byte, error) {
	w := cellWire{Tag: c.Tag().String()}
	var (
		raw []byte
		err error
	)
	switch c.Tag() {
	case cells.TagEmpty:
		// No value field.
	case cells.TagBoolean:
		v, _ := c.AsBool()
		raw, err = json.Marshal(v)
	case cells.TagInteger:
		v, _ := c.AsInt()
		raw, err = json.Marshal(v)
	case cells.TagReal:
		v, _ := c.AsReal()
		raw, err = json.Marshal(v)
	case cells.TagComplex:
		v, _ := c.AsComplex()
		raw, err = json.Marshal(complexWire{Re: real(v), Im: imag(v)})
	case cells.TagString:
		v, _ := c.AsString()
		raw, err = json.Marshal(v)
	case cells.TagDataStore:
		v, _ := c.AsDataStore()
		raw, err = json.Marshal(v)
	case cells.TagNumericArray:
		return nil, fmt.Errorf("wireformat: numeric array cells are not wire-encodable")
	default:
		return nil, fmt.Errorf("wireformat: unsupported cell tag %v", c.Tag())
	}
	if err != nil {
		return nil, err
	}
	w.Value = raw
	return json.Marshal(w)
}

// DecodeCell parses one cell from its JSON form.
func DecodeCell(data []byte) (cells.Cell, error) {
	var w cellWire
	if err := json.Unmarshal(data, &w); err != nil {
		return cells.Cell{}, err
	}
	switch w.Tag {
	case "Void":
		return cells.Empty(), nil
	case "Boolean":
		var v bool
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return cells.Cell{}, err
		}
		return cells.Bool(v), nil
	case "Integer":
		var v int64
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return cells.Cell{}, err
		}
		return cells.Int(v), nil
	case "Real":
		var v float64
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return cells.Cell{}, err
		}
		return cells.Real(v), nil
	case "Complex":
		var v complexWire
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return cells.Cell{}, err
		}
		return cells.Complex(complex(v.Re, v.Im)), nil
	case "String":
		var v string
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return cells.Cell{}, err
		}
		return cells.String(v), nil
	case "DataStore":
		d := datastore.New()
		if err := json.Unmarshal(w.Value, d); err != nil {
			return cells.Cell{}, err
		}
		return cells.DataStore(d), nil
	default:
		return cells.Cell{}, fmt.Errorf("wireformat: unsupported cell tag %q", w.Tag)
	}
}

// EncodeCells renders an argument list as a JSON array.
func EncodeCells(cs []cells.Cell) ([]byte, error) {
	parts := make([]json.RawMessage, len(cs))
	for i, c := range cs {
		raw, err := EncodeCell(c)
		if err != nil {
			return nil, fmt.Errorf("wireformat: argument %d: %w", i, err)
		}
		parts[i] = raw
	}
	return json.Marshal(parts)
}

// DecodeCells parses an argument list from a JSON array.
func DecodeCells(data []byte) ([]cells.Cell, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, err
	}
	cs := make([]cells.Cell, len(parts))
	for i, raw := range parts {
		c, err := DecodeCell(raw)
		if err != nil {
			return nil, fmt.Errorf("wireformat: argument %d: %w", i, err)
		}
		cs[i] = c
	}
	return cs, nil
}

// CallReply is the packed reply a wasm-compiled export returns to the host:
// the status code plus either the result cell or the failure value.
type CallReply struct {
	Status  uint32          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Failure *Failure        `json:"failure,omitempty"`
}
