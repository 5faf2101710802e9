package wireformat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/fault"
)

func TestFailureFromFault(t *testing.T) {
	c := fault.Capture(func() { panic("boom") })
	require.NotNil(t, c)

	f := FailureFromFault(c)
	assert.Equal(t, FailureTag, f.Tag)
	assert.Equal(t, "boom", f.Message)
	assert.NotEmpty(t, f.File)
	assert.Greater(t, f.Line, 0)
}

func TestCellCodec_Primitives(t *testing.T) {
	tests := []struct {
		name string
		cell cells.Cell
	}{
		{"void", cells.Empty()},
		{"bool", cells.Bool(true)},
		{"int", cells.Int(-7)},
		{"real", cells.Real(2.5)},
		{"complex", cells.Complex(complex(1.5, -0.5))},
		{"string", cells.String("héllo")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeCell(tt.cell)
			require.NoError(t, err)
			got, err := DecodeCell(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.cell.Tag(), got.Tag())
			assert.Equal(t, tt.cell.Value(), got.Value())
		})
	}
}

func TestCellCodec_DataStore(t *testing.T) {
	d := datastore.New().AddNamedInt("count", 3).AddString("x")
	raw, err := EncodeCell(cells.DataStore(d))
	require.NoError(t, err)

	got, err := DecodeCell(raw)
	require.NoError(t, err)
	store, ok := got.AsDataStore()
	require.True(t, ok)
	assert.Equal(t, 2, store.Len())
}

type stubArray struct{}

func (stubArray) ElementType() string { return "Integer64" }
func (stubArray) Len() int            { return 0 }
func (stubArray) Release() error      { return nil }

func TestCellCodec_ArrayRejected(t *testing.T) {
	_, err := EncodeCell(cells.NumericArray(stubArray{}, cells.PassConstant))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not wire-encodable")
}

func TestCellsRoundTrip(t *testing.T) {
	args := []cells.Cell{cells.Int(1), cells.String("a"), cells.Real(0.25)}
	raw, err := EncodeCells(args)
	require.NoError(t, err)

	got, err := DecodeCells(raw)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range args {
		assert.Equal(t, args[i].Tag(), got[i].Tag())
		assert.Equal(t, args[i].Value(), got[i].Value())
	}
}

func TestDecodeCell_UnknownTag(t *testing.T) {
	_, err := DecodeCell([]byte(`{"tag":"Tensor","value":1}`))
	require.Error(t, err)
}

func TestCatalogJSONShape(t *testing.T) {
	cat := Catalog{
		Library: "libdemo.so",
		Functions: map[string]Declaration{
			"square": {
				Name:    "square",
				Library: "libdemo.so",
				Params:  []ParamDecl{{Type: "Integer"}},
				Return:  "Integer",
			},
			"poll": {Name: "poll", Library: "libdemo.so", Transport: true},
		},
	}

	data, err := json.Marshal(cat)
	require.NoError(t, err)

	var decoded Catalog
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Functions, 2)
	assert.True(t, decoded.Functions["poll"].Transport)
	assert.Equal(t, "Integer", decoded.Functions["square"].Return)
}
