package dispatch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/library"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

func testData() *library.Data {
	return &library.Data{
		AbortQ:      func() bool { return false },
		NewLink:     func() (link.Link, error) { return link.NewLoopback(), nil },
		ProcessLink: func(link.Link) error { return nil },
	}
}

// Runs first in this file: the process-wide handle must not be established
// yet, so an invalid callback table trips the wrapper init gate.
func TestNativeWrapper_InitGate(t *testing.T) {
	require.False(t, library.Initialized())

	w, err := NativeWrapper(func() {})
	require.NoError(t, err)

	var res cells.Cell
	status := w(&library.Data{}, nil, &res)
	assert.Equal(t, cells.StatusWrapperInitFailed, status)
	assert.False(t, library.Initialized())
}

func TestNativeWrapper_Success(t *testing.T) {
	w, err := NativeWrapper(func(a, b int64) int64 { return a + b })
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.Int(2), cells.Int(40)}, &res)
	require.Equal(t, cells.StatusNoError, status)

	got, ok := res.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), got)
}

func TestNativeWrapper_VoidResult(t *testing.T) {
	w, err := NativeWrapper(func(s string) {})
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.String("x")}, &res)
	require.Equal(t, cells.StatusNoError, status)
	assert.Equal(t, cells.TagEmpty, res.Tag())
}

func TestNativeWrapper_NilDataStoreResult(t *testing.T) {
	w, err := NativeWrapper(func() *datastore.DataStore { return nil })
	require.NoError(t, err)

	var res cells.Cell
	require.NotPanics(t, func() {
		status := w(testData(), nil, &res)
		assert.Equal(t, cells.StatusNoError, status)
	})
	assert.Equal(t, cells.TagEmpty, res.Tag())
}

func TestNativeWrapper_PanicCaptured(t *testing.T) {
	w, err := NativeWrapper(func(n int64) int64 { panic("boom") })
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.Int(1)}, &res)
	assert.Equal(t, cells.StatusPanic, status)
	assert.Equal(t, cells.TagEmpty, res.Tag())
}

func TestNativeWrapper_ArityMismatch(t *testing.T) {
	ran := false
	w, err := NativeWrapper(func(a, b int64) int64 { ran = true; return a + b })
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.Int(1)}, &res)
	assert.Equal(t, cells.StatusArityMismatch, status)
	assert.False(t, ran, "user code must not run on an arity mismatch")
}

func TestNativeWrapper_TypeMismatch(t *testing.T) {
	w, err := NativeWrapper(func(n int8) int8 { return n })
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.Int(1000)}, &res)
	assert.Equal(t, cells.StatusTypeMismatch, status)

	status = w(testData(), []cells.Cell{cells.String("1")}, &res)
	assert.Equal(t, cells.StatusTypeMismatch, status)
}

func TestNativeWrapper_RawForm(t *testing.T) {
	w, err := NativeWrapper(func(args []cells.Cell, res *cells.Cell) error {
		if len(args) == 0 {
			return errors.New("need at least one argument")
		}
		*res = cells.Int(int64(len(args)))
		return nil
	})
	require.NoError(t, err)

	var res cells.Cell
	status := w(testData(), []cells.Cell{cells.Bool(true), cells.Real(1)}, &res)
	require.Equal(t, cells.StatusNoError, status)
	got, _ := res.AsInt()
	assert.Equal(t, int64(2), got)

	status = w(testData(), nil, &res)
	assert.Equal(t, cells.StatusFunctionError, status)
}

func TestNativeWrapper_RejectsBadRegistrations(t *testing.T) {
	_, err := NativeWrapper(42)
	assert.Error(t, err)

	_, err = NativeWrapper(func(ch chan int) {})
	assert.Error(t, err)
}

func TestTransportWrapper_Success(t *testing.T) {
	w := TransportWrapper(func(l link.Link) error {
		msg, err := l.ReadMessage()
		if err != nil {
			return err
		}
		return l.WriteMessage(append([]byte("echo:"), msg...))
	})

	lb := link.NewLoopback([]byte("ping"))
	status := w(testData(), lb)
	require.Equal(t, cells.StatusNoError, status)

	written := lb.Written()
	require.Len(t, written, 1)
	assert.Equal(t, "echo:ping", string(written[0]))
}

func TestTransportWrapper_FaultRecoversPoisonedLink(t *testing.T) {
	w := TransportWrapper(func(l link.Link) error {
		if _, err := l.ReadMessage(); err != nil {
			panic(err)
		}
		return nil
	})

	// The read fails and poisons the link, leaving the request message
	// unread on it.
	lb := link.NewLoopback([]byte("request"))
	lb.FailNext(errors.New("read fault"))

	status := w(testData(), lb)
	require.Equal(t, cells.StatusNoError, status)

	// The link was recovered: poison cleared, the unread request discarded,
	// and the structured failure written as the reply.
	assert.NoError(t, lb.Poisoned())
	assert.False(t, lb.Ready())
	written := lb.Written()
	require.Len(t, written, 1)

	var f wireformat.Failure
	require.NoError(t, json.Unmarshal(written[0], &f))
	assert.Equal(t, wireformat.FailureTag, f.Tag)
	assert.Contains(t, f.Message, "read fault")
}

func TestTransportWrapper_ErrorWritesFailure(t *testing.T) {
	w := TransportWrapper(func(l link.Link) error {
		return errors.New("no such record")
	})

	lb := link.NewLoopback()
	status := w(testData(), lb)
	require.Equal(t, cells.StatusNoError, status)

	written := lb.Written()
	require.Len(t, written, 1)
	var f wireformat.Failure
	require.NoError(t, json.Unmarshal(written[0], &f))
	assert.Equal(t, "no such record", f.Message)
}

func TestTransportWrapper_WriteFailureDegrades(t *testing.T) {
	w := TransportWrapper(func(l link.Link) error { return errors.New("boom") })

	lb := link.NewLoopback()
	lb.Close()
	status := w(testData(), lb)
	assert.Equal(t, cells.StatusPanic, status)
}
