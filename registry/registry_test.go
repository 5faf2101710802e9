package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

func TestExportAndLookup(t *testing.T) {
	var r Registry
	r.Export("square", func(n int64) int64 { return n * n })

	e, ok := r.Lookup("square")
	require.True(t, ok)
	assert.Equal(t, KindNative, e.Kind)
	assert.NotNil(t, e.Native)

	_, ok = r.Lookup("cube")
	assert.False(t, ok)
}

func TestRegistrationOrderPreserved(t *testing.T) {
	var r Registry
	r.Export("c", func() {})
	r.Export("a", func() {})
	r.Export("b", func() {})

	assert.Equal(t, []string{"c", "a", "b"}, r.Functions())
}

func TestDuplicateExportPanics(t *testing.T) {
	var r Registry
	r.Export("f", func() {})
	assert.Panics(t, func() { r.Export("f", func() {}) })
}

func TestInvalidNamePanics(t *testing.T) {
	var r Registry
	assert.Panics(t, func() { r.Export("", func() {}) })
	assert.Panics(t, func() { r.Export("has space", func() {}) })
}

func TestUnsupportedSignaturePanics(t *testing.T) {
	var r Registry
	assert.Panics(t, func() { r.Export("bad", func(ch chan int) {}) })
}

func TestCatalogOmitsUndescribableEntries(t *testing.T) {
	var r Registry
	r.Export("square", func(n int64) int64 { return n * n })
	r.Export("greet", func(name string) string { return "hi " + name })
	// Raw-form functions accept any arity, so they have no declaration.
	r.Export("raw_probe", func(args []cells.Cell, res *cells.Cell) error { return nil })

	cat := r.Catalog("libdemo.so")
	assert.Len(t, r.Functions(), 3)
	require.Len(t, cat.Functions, 2)

	sq := cat.Functions["square"]
	assert.Equal(t, "libdemo.so", sq.Library)
	require.Len(t, sq.Params, 1)
	assert.Equal(t, "Integer", sq.Params[0].Type)
	assert.Equal(t, "Integer", sq.Return)

	_, omitted := cat.Functions["raw_probe"]
	assert.False(t, omitted)

	// Omission from the catalog does not affect callability.
	e, ok := r.Lookup("raw_probe")
	require.True(t, ok)
	assert.NotNil(t, e.Native)
}

type watchRequest struct {
	Path     string `json:"path"`
	Interval int    `json:"interval_ms,omitempty"`
}

func TestTransportDeclarationCarriesPayloadSchema(t *testing.T) {
	var r Registry
	r.ExportTransport("watch", func(l link.Link) error { return nil },
		WithPayloadModel(&watchRequest{}))

	cat := r.Catalog("libdemo.so")
	decl := cat.Functions["watch"]
	assert.True(t, decl.Transport)
	require.NotEmpty(t, decl.PayloadSchema)
	assert.Contains(t, string(decl.PayloadSchema), "path")
}

func TestLoaderRepliesWithCatalog(t *testing.T) {
	var r Registry
	r.Export("square", func(n int64) int64 { return n * n })
	r.ExportLoader("load_library")

	e, ok := r.Lookup("load_library")
	require.True(t, ok)
	require.Equal(t, KindTransport, e.Kind)

	req, err := json.Marshal(wireformat.LoadRequest{Path: "libdemo.so"})
	require.NoError(t, err)

	fn := r.LoaderFunc()
	lb := link.NewLoopback(req)
	require.NoError(t, fn(lb))

	written := lb.Written()
	require.Len(t, written, 1)

	var cat wireformat.Catalog
	require.NoError(t, json.Unmarshal(written[0], &cat))
	assert.Equal(t, "libdemo.so", cat.Library)
	// The loader itself is a transport entry and appears in its own catalog.
	assert.Len(t, cat.Functions, 2)
	assert.Equal(t, "Integer", cat.Functions["square"].Return)
}
