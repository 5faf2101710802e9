// Package fault contains abnormal termination of a unit of work. A panic in
// wrapped user code is converted into a structured Captured value instead of
// unwinding into the host process.
package fault

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// BacktraceEnvVar enables full backtrace capture when set to "True".
// Any other value, or absence, disables it.
const BacktraceEnvVar = "KERNLINK_BACKTRACE"

var backtraceEnabled = sync.OnceValue(func() bool {
	return os.Getenv(BacktraceEnvVar) == "True"
})

// Captured is the structured record of a unit of work that aborted
// abnormally. It is consumed exactly once to build a failure value or a
// fallback status code.
type Captured struct {
	// Message is the text of the panic value.
	Message string
	// File and Line locate the panic site, when it could be resolved.
	File string
	Line int
	// Backtrace is the full stack trace, present only when BacktraceEnvVar
	// was set to "True" at the time of the first capture.
	Backtrace string
}

// Error implements the error interface.
func (c *Captured) Error() string {
	if c.File != "" {
		return fmt.Sprintf("panic at %s:%d: %s", c.File, c.Line, c.Message)
	}
	return "panic: " + c.Message
}

// HasLocation reports whether a source location was resolved.
func (c *Captured) HasLocation() bool { return c.File != "" }

// Capture runs f and returns nil if it completes normally. If f panics, the
// panic is stopped here and returned as a Captured value; it never
// propagates to the caller. Each invocation captures independently, so
// concurrent units of work do not share state.
func Capture(f func()) (captured *Captured) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		c := &Captured{Message: messageOf(r)}
		c.File, c.Line = panicSite()
		if backtraceEnabled() {
			c.Backtrace = string(debug.Stack())
		}
		captured = c
	}()

	f()
	return nil
}

func messageOf(v any) string {
	switch m := v.(type) {
	case error:
		return m.Error()
	case string:
		return m
	default:
		return fmt.Sprint(m)
	}
}

// panicSite walks the stack out of the runtime's panic machinery and this
// package to find the frame that panicked.
func panicSite() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fn := frame.Function
		if fn != "" &&
			!strings.HasPrefix(fn, "runtime.") &&
			!strings.HasPrefix(fn, "runtime/debug.") &&
			!captureFrame(fn) {
			return frame.File, frame.Line
		}
		if !more {
			return "", 0
		}
	}
}

// captureFrame matches only this package's own capture machinery, by exact
// name. A panic raised by any other code in this package must still resolve
// to its own frame.
func captureFrame(fn string) bool {
	const pkg = "github.com/kernlink-dev/kernlink-sdk/fault."
	return fn == pkg+"panicSite" ||
		fn == pkg+"Capture" ||
		strings.HasPrefix(fn, pkg+"Capture.")
}
