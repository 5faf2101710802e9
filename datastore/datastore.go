// Package datastore implements the ordered, heterogeneous, append-only
// payload container used for async events and structured call results.
//
// A DataStore is owned exclusively by its builder until it is posted to the
// transport. Posting seals it: the container becomes read-only and any
// further append panics.
package datastore

import (
	"encoding/json"
	"fmt"

	"github.com/kernlink-dev/kernlink-sdk/cells"
)

// Node is one element of a DataStore: an optional name plus a tagged value.
type Node struct {
	Name string
	Tag  cells.Tag
	// Exactly one of the following is meaningful, selected by Tag.
	Int   int64
	Real  float64
	Str   string
	Store *DataStore
	Array cells.Array
}

// DataStore is an insertion-ordered sequence of tagged values. It is not
// safe for concurrent mutation; build it on one goroutine, then post it.
type DataStore struct {
	nodes  []Node
	sealed bool
}

// New returns an empty, unsealed DataStore.
func New() *DataStore { return &DataStore{} }

// Len returns the number of elements.
func (d *DataStore) Len() int { return len(d.nodes) }

// Sealed reports whether the container has been handed to the transport.
func (d *DataStore) Sealed() bool { return d.sealed }

// Seal marks the container consumed. Idempotent. Called by the posting
// path; user code normally never needs it.
func (d *DataStore) Seal() { d.sealed = true }

// Nodes returns the elements in insertion order. The returned slice must
// be treated as read-only.
func (d *DataStore) Nodes() []Node { return d.nodes }

func (d *DataStore) append(n Node) *DataStore {
	if d.sealed {
		panic("datastore: append after the container was posted")
	}
	d.nodes = append(d.nodes, n)
	return d
}

// AddInt appends an integer element.
func (d *DataStore) AddInt(v int64) *DataStore {
	return d.append(Node{Tag: cells.TagInteger, Int: v})
}

// AddNamedInt appends a named integer element.
func (d *DataStore) AddNamedInt(name string, v int64) *DataStore {
	return d.append(Node{Name: name, Tag: cells.TagInteger, Int: v})
}

// AddReal appends a real element.
func (d *DataStore) AddReal(v float64) *DataStore {
	return d.append(Node{Tag: cells.TagReal, Real: v})
}

// AddNamedReal appends a named real element.
func (d *DataStore) AddNamedReal(name string, v float64) *DataStore {
	return d.append(Node{Name: name, Tag: cells.TagReal, Real: v})
}

// AddString appends a text element.
func (d *DataStore) AddString(v string) *DataStore {
	return d.append(Node{Tag: cells.TagString, Str: v})
}

// AddNamedString appends a named text element.
func (d *DataStore) AddNamedString(name string, v string) *DataStore {
	return d.append(Node{Name: name, Tag: cells.TagString, Str: v})
}

// AddDataStore appends a nested container. Ownership of the child moves
// into the parent: the child is sealed against further appends.
func (d *DataStore) AddDataStore(child *DataStore) *DataStore {
	child.Seal()
	return d.append(Node{Tag: cells.TagDataStore, Store: child})
}

// AddNamedDataStore appends a named nested container, sealing the child.
func (d *DataStore) AddNamedDataStore(name string, child *DataStore) *DataStore {
	child.Seal()
	return d.append(Node{Name: name, Tag: cells.TagDataStore, Store: child})
}

// AddArray appends a numeric array element. The array handle is stored as
// is; element data stays with the host-side codec.
func (d *DataStore) AddArray(a cells.Array) *DataStore {
	return d.append(Node{Tag: cells.TagNumericArray, Array: a})
}

// nodeWire is the JSON wire shape of a single element.
type nodeWire struct {
	Name  string          `json:"name,omitempty"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the container as an ordered JSON list. Numeric array
// elements are not wire-encodable (their codec is a host collaborator) and
// produce an error.
func (d *DataStore) MarshalJSON() ([]byte, error) {
	wire := make([]nodeWire, 0, len(d.nodes))
	for i, n := range d.nodes {
		w := nodeWire{Name: n.Name, Type: n.Tag.String()}
		var (
			raw []byte
			err error
		)
		switch n.Tag {
		case cells.TagInteger:
			raw, err = json.Marshal(n.Int)
		case cells.TagReal:
			raw, err = json.Marshal(n.Real)
		case cells.TagString:
			raw, err = json.Marshal(n.Str)
		case cells.TagDataStore:
			raw, err = json.Marshal(n.Store)
		case cells.TagNumericArray:
			err = fmt.Errorf("datastore: element %d: numeric arrays are not wire-encodable", i)
		default:
			err = fmt.Errorf("datastore: element %d: unsupported tag %v", i, n.Tag)
		}
		if err != nil {
			return nil, err
		}
		w.Value = raw
		wire = append(wire, w)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON rebuilds a container from its wire form. The result is
// unsealed; decoding is used on the host side of the boundary.
func (d *DataStore) UnmarshalJSON(data []byte) error {
	var wire []nodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.nodes = d.nodes[:0]
	d.sealed = false
	for i, w := range wire {
		switch w.Type {
		case "Integer":
			var v int64
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return fmt.Errorf("datastore: element %d: %w", i, err)
			}
			d.nodes = append(d.nodes, Node{Name: w.Name, Tag: cells.TagInteger, Int: v})
		case "Real":
			var v float64
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return fmt.Errorf("datastore: element %d: %w", i, err)
			}
			d.nodes = append(d.nodes, Node{Name: w.Name, Tag: cells.TagReal, Real: v})
		case "String":
			var v string
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return fmt.Errorf("datastore: element %d: %w", i, err)
			}
			d.nodes = append(d.nodes, Node{Name: w.Name, Tag: cells.TagString, Str: v})
		case "DataStore":
			child := New()
			if err := json.Unmarshal(w.Value, child); err != nil {
				return fmt.Errorf("datastore: element %d: %w", i, err)
			}
			d.nodes = append(d.nodes, Node{Name: w.Name, Tag: cells.TagDataStore, Store: child})
		default:
			return fmt.Errorf("datastore: element %d: unsupported type %q", i, w.Type)
		}
	}
	return nil
}
