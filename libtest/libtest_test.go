package libtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/registry"
	"github.com/kernlink-dev/kernlink-sdk/task"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

func init() {
	registry.Export("double", func(n int64) int64 { return 2 * n })
	registry.Export("fail", func() { panic("boom") })
	registry.ExportTransport("echo", func(l link.Link) error {
		msg, err := l.ReadMessage()
		if err != nil {
			return err
		}
		return l.WriteMessage(msg)
	})
}

func TestCallNative(t *testing.T) {
	res := Call(t, "double", cells.Int(21))
	got, ok := res.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), got)
}

func TestCallStatusReportsFaults(t *testing.T) {
	_, status := CallStatus(t, "fail")
	assert.Equal(t, cells.StatusPanic, status)
}

func TestCallTransport(t *testing.T) {
	replies, status := CallTransport(t, "echo", []byte("hello"))
	assert.Equal(t, cells.StatusNoError, status)
	require.Len(t, replies, 1)
	assert.Equal(t, "hello", string(replies[0]))
}

func TestTransportFaultWritesFailure(t *testing.T) {
	// No request queued: the read poisons the link and the wrapper replies
	// with the structured failure.
	replies, status := CallTransport(t, "echo")
	assert.Equal(t, cells.StatusNoError, status)
	require.Len(t, replies, 1)

	var f wireformat.Failure
	require.NoError(t, json.Unmarshal(replies[0], &f))
	assert.Equal(t, wireformat.FailureTag, f.Tag)
}

func TestHostRecordsTaskEvents(t *testing.T) {
	h := Install(t)

	id, err := task.Spawn(func(tk *task.Task) {
		payload := datastore.New().AddNamedString("path", "/tmp/x")
		if err := tk.RaiseEvent("change", payload); err != nil {
			return
		}
		for tk.IsAlive() {
			time.Sleep(time.Millisecond)
		}
	})
	require.NoError(t, err)

	ev := h.WaitEvent(t, "change", time.Second)
	assert.Equal(t, id, ev.TaskID)
	require.NotNil(t, ev.Payload)
	assert.True(t, ev.Payload.Sealed())

	task.Retire(id)
	h.WaitTaskRemoved(t, id, time.Second)
}

func TestResetClearsState(t *testing.T) {
	h := Install(t)
	h.SetAborted(true)
	assert.True(t, h.aborted.Load())

	h.Reset()
	assert.False(t, h.aborted.Load())
	assert.Empty(t, h.Events())
}
