package datastore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
)

func TestDataStore_PreservesInsertionOrder(t *testing.T) {
	d := New().
		AddInt(1).
		AddString("two").
		AddReal(3.0).
		AddNamedInt("four", 4)

	require.Equal(t, 4, d.Len())
	nodes := d.Nodes()
	assert.Equal(t, cells.TagInteger, nodes[0].Tag)
	assert.Equal(t, cells.TagString, nodes[1].Tag)
	assert.Equal(t, cells.TagReal, nodes[2].Tag)
	assert.Equal(t, "four", nodes[3].Name)
	assert.Equal(t, int64(4), nodes[3].Int)
}

func TestDataStore_AppendAfterSealPanics(t *testing.T) {
	d := New().AddInt(1)
	d.Seal()
	assert.True(t, d.Sealed())
	assert.PanicsWithValue(t, "datastore: append after the container was posted", func() {
		d.AddInt(2)
	})
}

func TestDataStore_NestedChildIsSealed(t *testing.T) {
	child := New().AddString("inner")
	parent := New().AddDataStore(child)

	assert.True(t, child.Sealed())
	assert.False(t, parent.Sealed())
	assert.Panics(t, func() { child.AddInt(1) })
}

func TestDataStore_JSONRoundTrip(t *testing.T) {
	child := New().AddNamedString("path", "/tmp/x")
	d := New().
		AddNamedInt("modified", 1700000000).
		AddReal(0.5).
		AddDataStore(child)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	decoded := New()
	require.NoError(t, json.Unmarshal(data, decoded))
	require.Equal(t, 3, decoded.Len())

	nodes := decoded.Nodes()
	assert.Equal(t, "modified", nodes[0].Name)
	assert.Equal(t, int64(1700000000), nodes[0].Int)
	assert.Equal(t, 0.5, nodes[1].Real)
	require.Equal(t, cells.TagDataStore, nodes[2].Tag)
	inner := nodes[2].Store.Nodes()
	require.Len(t, inner, 1)
	assert.Equal(t, "/tmp/x", inner[0].Str)
}

type stubArray struct{}

func (stubArray) ElementType() string { return "Integer64" }
func (stubArray) Len() int            { return 0 }
func (stubArray) Release() error      { return nil }

func TestDataStore_ArrayNotWireEncodable(t *testing.T) {
	d := New().AddArray(stubArray{})
	_, err := json.Marshal(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not wire-encodable")
}

func TestDataStore_ImplementsCellStore(t *testing.T) {
	var s cells.Store = New().AddInt(1)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Sealed())
}
