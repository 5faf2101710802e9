// Package logwire defines the wire shape of log records forwarded from the
// library to the host. It is split from package log so the library handle
// can reference it without an import cycle.
package logwire

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Message is a single log record crossing the boundary.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Attrs     []Attr    `json:"attrs,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Attr is one flattened slog attribute.
type Attr struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FromAttr converts a slog attribute to its wire form.
func FromAttr(attr slog.Attr) Attr {
	wire := Attr{Key: attr.Key}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%g", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		if v == nil {
			wire.Type = "any"
			wire.Value = "<nil>"
			break
		}
		if err, ok := v.(error); ok {
			wire.Type = "error"
			wire.Value = err.Error()
			break
		}
		if data, err := json.Marshal(v); err == nil {
			wire.Type = "json"
			wire.Value = string(data)
			break
		}
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", v)
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}
