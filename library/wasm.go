//go:build wasip1

package library

import (
	"encoding/json"
	"fmt"

	"github.com/kernlink-dev/kernlink-sdk/datastore"
	"github.com/kernlink-dev/kernlink-sdk/internal/abi"
	"github.com/kernlink-dev/kernlink-sdk/link"
	"github.com/kernlink-dev/kernlink-sdk/log/logwire"
)

//go:wasmimport kernlink_host abort_query
func hostAbortQuery() uint32

//go:wasmimport kernlink_host process_link
func hostProcessLink() uint32

//go:wasmimport kernlink_host new_async_task
func hostNewAsyncTask() uint64

//go:wasmimport kernlink_host remove_async_task
func hostRemoveAsyncTask(id uint64)

//go:wasmimport kernlink_host raise_async_event
func hostRaiseAsyncEvent(id uint64, name uint64, payload uint64) uint32

//go:wasmimport kernlink_host log_message
func hostLogMessage(packed uint64)

// HostData builds the callback table over the host's import surface. The
// generated entry points hand it to their wrappers on every call; the first
// call installs it as the process-wide handle.
func HostData() *Data {
	return &Data{
		AbortQ:  func() bool { return hostAbortQuery() != 0 },
		NewLink: func() (link.Link, error) { return link.Host(), nil },
		ProcessLink: func(link.Link) error {
			if rc := hostProcessLink(); rc != 0 {
				return fmt.Errorf("library: host could not process the link (code %d)", rc)
			}
			return nil
		},
		NewAsyncTaskID:  func() int64 { return int64(hostNewAsyncTask()) },
		RemoveAsyncTask: func(id int64) { hostRemoveAsyncTask(uint64(id)) },
		RaiseAsyncEvent: func(id int64, name string, payload *datastore.DataStore) error {
			namePacked := abi.PtrFromBytes([]byte(name))
			defer abi.Release(namePacked)

			var payloadPacked uint64
			if payload != nil {
				raw, err := json.Marshal(payload)
				if err != nil {
					return fmt.Errorf("library: encode event payload: %w", err)
				}
				payloadPacked = abi.PtrFromBytes(raw)
				defer abi.Release(payloadPacked)
			}
			if rc := hostRaiseAsyncEvent(uint64(id), namePacked, payloadPacked); rc != 0 {
				return fmt.Errorf("library: host rejected event %q (code %d)", name, rc)
			}
			return nil
		},
		LogMessage: func(msg logwire.Message) {
			raw, err := json.Marshal(msg)
			if err != nil {
				return
			}
			packed := abi.PtrFromBytes(raw)
			hostLogMessage(packed)
			abi.Release(packed)
		},
	}
}
