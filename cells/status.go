package cells

import "strconv"

// Status is the integer code every exported function returns to the host.
//
// The host recognizes the base codes below. Codes at or above
// ReservedStatusBase are reserved for the generated wrappers so the host
// can tell wrapper-level failures (init gate, captured panic, bad call
// shape) apart from ordinary function errors without inspecting payloads.
type Status uint32

const (
	// StatusNoError indicates the call completed and the result slot is valid.
	StatusNoError Status = 0
	// StatusFunctionError is the generic failure code.
	StatusFunctionError Status = 1
	// StatusInitFailed indicates the process-wide library handle was never
	// established.
	StatusInitFailed Status = 2
	// StatusTransportError indicates an I/O failure on the structured link.
	StatusTransportError Status = 3
)

// ReservedStatusBase is the first wrapper-reserved status code. Everything
// at or above it is produced by the dispatch wrappers, never by user code.
const ReservedStatusBase Status = 128

const (
	// StatusWrapperInitFailed: the init gate failed inside a wrapper.
	StatusWrapperInitFailed Status = ReservedStatusBase + 1
	// StatusPanic: user code aborted abnormally and the fault was captured.
	StatusPanic Status = ReservedStatusBase + 2
	// StatusArityMismatch: the host supplied a different number of argument
	// cells than the function's signature declares.
	StatusArityMismatch Status = ReservedStatusBase + 3
	// StatusTypeMismatch: an argument cell's tag did not match the expected
	// native type, or a numeric value did not fit the target type.
	StatusTypeMismatch Status = ReservedStatusBase + 4
)

// String returns a diagnostic name for the status.
func (s Status) String() string {
	switch s {
	case StatusNoError:
		return "NoError"
	case StatusFunctionError:
		return "FunctionError"
	case StatusInitFailed:
		return "InitFailed"
	case StatusTransportError:
		return "TransportError"
	case StatusWrapperInitFailed:
		return "WrapperInitFailed"
	case StatusPanic:
		return "Panic"
	case StatusArityMismatch:
		return "ArityMismatch"
	case StatusTypeMismatch:
		return "TypeMismatch"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// OK reports whether the status indicates success.
func (s Status) OK() bool { return s == StatusNoError }

// Reserved reports whether the status is in the wrapper-reserved range.
func (s Status) Reserved() bool { return s >= ReservedStatusBase }
