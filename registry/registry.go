// Package registry keeps the process-wide table of exported functions and
// generates the loading catalog the host uses to bind to them. Functions are
// registered from init funcs, before the host's first call, so the table is
// append-only and never shrinks.
package registry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/dispatch"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/marshal"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// Kind distinguishes the two call modes an entry can be bound with.
type Kind int

const (
	// KindNative entries receive argument cells and fill a result slot.
	KindNative Kind = iota
	// KindTransport entries exchange structured messages over a link.
	KindTransport
)

// descriptor carries the validated registration metadata.
type descriptor struct {
	Name string `validate:"required,min=1,max=255"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Entry is one registered function together with everything the catalog
// generator needs to describe it.
type Entry struct {
	Name      string
	Kind      Kind
	Native    dispatch.NativeFunc
	Transport dispatch.TransportFunc

	// signature is nil for functions with no host-describable signature;
	// those stay callable but are omitted from the catalog.
	signature     *marshal.Signature
	payloadSchema json.RawMessage
}

// Declaration renders the entry's loading declaration. ok is false when the
// entry has no host-describable signature.
func (e *Entry) Declaration(libraryPath string) (wireformat.Declaration, bool) {
	switch e.Kind {
	case KindTransport:
		return wireformat.Declaration{
			Name:          e.Name,
			Library:       libraryPath,
			Transport:     true,
			PayloadSchema: e.payloadSchema,
		}, true
	default:
		if e.signature == nil {
			return wireformat.Declaration{}, false
		}
		return wireformat.Declaration{
			Name:    e.Name,
			Library: libraryPath,
			Params:  e.signature.Params,
			Return:  e.signature.Return,
		}, true
	}
}

// Registry is an append-only function table. The zero value is usable.
type Registry struct {
	mu     sync.Mutex
	order  []*Entry
	byName map[string]*Entry
}

func (r *Registry) add(e *Entry) {
	if err := validate.Struct(descriptor{Name: e.Name}); err != nil {
		panic(fmt.Sprintf("registry: invalid export name %q: %v", e.Name, err))
	}
	if strings.ContainsAny(e.Name, " \t\r\n") {
		panic(fmt.Sprintf("registry: export name %q contains whitespace", e.Name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName == nil {
		r.byName = make(map[string]*Entry)
	}
	if _, dup := r.byName[e.Name]; dup {
		panic(fmt.Sprintf("registry: %q is already exported", e.Name))
	}
	r.byName[e.Name] = e
	r.order = append(r.order, e)
}

// Export registers fn under name for native-mode calls. It panics on a
// duplicate name, an invalid name, or an unsupported function signature;
// registration runs at init time where failing loudly is the useful
// behavior.
func (r *Registry) Export(name string, fn any) {
	w, err := dispatch.NativeWrapper(fn)
	if err != nil {
		panic(fmt.Sprintf("registry: export %q: %v", name, err))
	}

	var sig *marshal.Signature
	if _, raw := fn.(func(args []cells.Cell, res *cells.Cell) error); !raw {
		s, err := marshal.Probe(reflect.TypeOf(fn))
		if err == nil {
			sig = &s
		}
	}

	r.add(&Entry{Name: name, Kind: KindNative, Native: w, signature: sig})
}

// TransportOption configures a transport export.
type TransportOption func(*Entry)

// WithPayloadModel attaches a JSON schema, reflected from model, describing
// the structured payload the function expects. The schema travels on the
// loading declaration so the host can validate payloads before dispatch.
func WithPayloadModel(model any) TransportOption {
	return func(e *Entry) {
		raw, err := json.Marshal(jsonschema.Reflect(model))
		if err != nil {
			panic(fmt.Sprintf("registry: payload schema for %q: %v", e.Name, err))
		}
		e.payloadSchema = raw
	}
}

// ExportTransport registers fn under name for structured-transport calls.
func (r *Registry) ExportTransport(name string, fn func(l link.Link) error, opts ...TransportOption) {
	e := &Entry{Name: name, Kind: KindTransport, Transport: dispatch.TransportWrapper(fn)}
	for _, opt := range opts {
		opt(e)
	}
	r.add(e)
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byName[name]
	return e, ok
}

// Functions returns the exported names in registration order.
func (r *Registry) Functions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	for i, e := range r.order {
		names[i] = e.Name
	}
	return names
}

// Catalog generates the loading catalog for the library at libraryPath.
// Entries with no host-describable signature are silently omitted; they
// remain callable for callers that already know how to reach them.
func (r *Registry) Catalog(libraryPath string) wireformat.Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat := wireformat.Catalog{
		Library:   libraryPath,
		Functions: make(map[string]wireformat.Declaration, len(r.order)),
	}
	for _, e := range r.order {
		if decl, ok := e.Declaration(libraryPath); ok {
			cat.Functions[e.Name] = decl
		}
	}
	return cat
}

// LoaderFunc is the transport function behind an ExportLoader registration:
// it reads a load request and replies with the catalog.
func (r *Registry) LoaderFunc() func(l link.Link) error {
	return func(l link.Link) error {
		raw, err := l.ReadMessage()
		if err != nil {
			return fmt.Errorf("registry: read load request: %w", err)
		}
		var req wireformat.LoadRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("registry: decode load request: %w", err)
		}
		data, err := json.Marshal(r.Catalog(req.Path))
		if err != nil {
			return fmt.Errorf("registry: encode catalog: %w", err)
		}
		return l.WriteMessage(data)
	}
}

// ExportLoader registers the catalog loader as a transport function under
// name. The host calls it once after loading the library to learn every
// other export.
func (r *Registry) ExportLoader(name string) {
	r.ExportTransport(name, r.LoaderFunc())
}

var defaultRegistry Registry

// Default returns the process-wide registry that the package-level Export
// functions feed.
func Default() *Registry { return &defaultRegistry }

// Export registers fn on the process-wide registry.
func Export(name string, fn any) { defaultRegistry.Export(name, fn) }

// ExportTransport registers fn on the process-wide registry.
func ExportTransport(name string, fn func(l link.Link) error, opts ...TransportOption) {
	defaultRegistry.ExportTransport(name, fn, opts...)
}

// ExportLoader registers the catalog loader on the process-wide registry.
func ExportLoader(name string) { defaultRegistry.ExportLoader(name) }

// Lookup finds an entry on the process-wide registry.
func Lookup(name string) (*Entry, bool) { return defaultRegistry.Lookup(name) }

// Functions lists the process-wide registry in registration order.
func Functions() []string { return defaultRegistry.Functions() }

// Catalog generates the process-wide registry's loading catalog.
func Catalog(libraryPath string) wireformat.Catalog { return defaultRegistry.Catalog(libraryPath) }
