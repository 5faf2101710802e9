// Package wireformat defines the JSON wire structures exchanged with the
// host evaluator: structured failure values, async events, and the loading
// catalog. These types are the boundary contract and must stay stable.
package wireformat

import (
	"encoding/json"
	"time"

	"github.com/kernlink-dev/kernlink-sdk/fault"
)

// FailureTag tags a structured failure value written to the transport.
const FailureTag = "LibraryFailure"

// Failure is the tagged failure value a structured-transport call writes
// when user code aborts abnormally or returns an error.
type Failure struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
	// File and Line are present when the fault's source location was
	// resolved.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	// Backtrace is present only when backtrace capture is enabled.
	Backtrace string `json:"backtrace,omitempty"`
}

// FailureFromFault converts a captured fault into its wire form.
func FailureFromFault(c *fault.Captured) Failure {
	return Failure{
		Tag:       FailureTag,
		Message:   c.Message,
		File:      c.File,
		Line:      c.Line,
		Backtrace: c.Backtrace,
	}
}

// FailureFromError converts an ordinary error into its wire form.
func FailureFromError(err error) Failure {
	return Failure{Tag: FailureTag, Message: err.Error()}
}

// Event is a named async notification with its structured payload, posted
// by a background task and observed by the host in per-task order.
type Event struct {
	TaskID  int64           `json:"task_id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Raised  time.Time       `json:"raised,omitempty"`
}

// ParamDecl describes one parameter in a host loading declaration.
type ParamDecl struct {
	Type string `json:"type"`
	// Mode is set for numeric-array parameters: Constant, Manual or Shared.
	Mode string `json:"mode,omitempty"`
}

// Declaration tells the host how to bind to one exported function.
type Declaration struct {
	Name    string      `json:"name"`
	Library string      `json:"library"`
	Params  []ParamDecl `json:"params,omitempty"`
	Return  string      `json:"return,omitempty"`
	// Transport marks a structured-transport function; such functions are
	// bound with a fixed two-way link declaration instead of a parameter
	// list, and their symbol resolution is isolated to a private namespace
	// on the host side.
	Transport bool `json:"transport,omitempty"`
	// PayloadSchema optionally carries a JSON schema for the structured
	// payload a transport function expects.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`
}

// Catalog is the loading catalog: one declaration per exported function
// whose signature could be described to the host.
type Catalog struct {
	Library   string                 `json:"library"`
	Functions map[string]Declaration `json:"functions"`
}

// LoadRequest is the single-argument message the loader function reads: the
// path or name identifying the compiled library.
type LoadRequest struct {
	Path string `json:"path"`
}
