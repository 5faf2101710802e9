// Package kernlink is the entry surface for writing native extension
// libraries. A library registers its functions at init time, installs the
// log handler from main, and compiles to a module the host evaluator loads:
//
//	func init() {
//		kernlink.Export("square", func(n int64) int64 { return n * n })
//		kernlink.ExportLoader("load_my_functions")
//	}
//
//	func main() {
//		log.Install()
//	}
//
// The subpackages carry the mechanics: cells for the raw call slots,
// dispatch for the generated wrappers, registry for the function table,
// task for background work, and host for running compiled libraries from
// Go tooling.
package kernlink

import (
	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/registry"
	"github.com/kernlink-dev/kernlink-sdk/task"
)

// Version is the SDK version reported to host tooling.
const Version = "0.3.0"

// Export registers a native-mode function on the process-wide registry.
// See registry.Export for the accepted signatures.
func Export(name string, fn any) {
	registry.Export(name, fn)
}

// ExportTransport registers a structured-transport function on the
// process-wide registry.
func ExportTransport(name string, fn func(l link.Link) error, opts ...registry.TransportOption) {
	registry.ExportTransport(name, fn, opts...)
}

// ExportLoader registers the catalog loader on the process-wide registry.
func ExportLoader(name string) {
	registry.ExportLoader(name)
}

// Spawn starts background work tied to a host-assigned task id.
func Spawn(work func(t *task.Task)) (int64, error) {
	return task.Spawn(work)
}

// NewDataStore returns an empty structured payload container.
func NewDataStore() *datastore.DataStore {
	return datastore.New()
}
