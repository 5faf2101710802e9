//go:build wasip1

package registry

import (
	"encoding/json"
	"errors"

	"github.com/kernlink-dev/kernlink-sdk/cells"
	"github.com/kernlink-dev/kernlink-sdk/internal/abi"
	"github.com/kernlink-dev/kernlink-sdk/library"
	"github.com/kernlink-dev/kernlink-sdk/wireformat"
)

// kernlinkCall is the host's entry point for native-mode calls: the function
// name and the encoded argument cells arrive packed, the encoded reply goes
// back packed. Every reply carries the wrapper status so the host never has
// to guess from a trap.
//
//go:wasmexport kernlink_call
func kernlinkCall(namePacked, argsPacked uint64) uint64 {
	name := string(abi.BytesFromPtr(namePacked))
	entry, ok := Lookup(name)
	if !ok || entry.Kind != KindNative {
		return replyFailure(cells.StatusFunctionError, errors.New("no native function "+name))
	}

	args, err := wireformat.DecodeCells(abi.BytesFromPtr(argsPacked))
	if err != nil {
		return replyFailure(cells.StatusTypeMismatch, err)
	}

	var res cells.Cell
	status := entry.Native(library.HostData(), args, &res)
	if status == cells.StatusPanic {
		// A faulted call abandons whatever it pinned mid-flight.
		abi.ReleaseAll()
	}
	reply := wireformat.CallReply{Status: uint32(status)}
	if status.OK() {
		raw, err := wireformat.EncodeCell(res)
		if err != nil {
			return replyFailure(cells.StatusTypeMismatch, err)
		}
		reply.Result = raw
	}
	return packReply(reply)
}

// kernlinkCallTransport runs a structured-transport function. Arguments and
// results travel over the host link, so only the status crosses here.
//
//go:wasmexport kernlink_call_transport
func kernlinkCallTransport(namePacked uint64) uint32 {
	name := string(abi.BytesFromPtr(namePacked))
	entry, ok := Lookup(name)
	if !ok || entry.Kind != KindTransport {
		return uint32(cells.StatusFunctionError)
	}
	d := library.HostData()
	l, err := d.NewLink()
	if err != nil {
		return uint32(cells.StatusTransportError)
	}
	status := entry.Transport(d, l)
	if status == cells.StatusPanic {
		abi.ReleaseAll()
	}
	return uint32(status)
}

// kernlinkCatalog renders the loading catalog for the library path the host
// supplies.
//
//go:wasmexport kernlink_catalog
func kernlinkCatalog(pathPacked uint64) uint64 {
	path := string(abi.BytesFromPtr(pathPacked))
	raw, err := json.Marshal(Catalog(path))
	if err != nil {
		return 0
	}
	return abi.PtrFromBytes(raw)
}

func replyFailure(status cells.Status, err error) uint64 {
	f := wireformat.FailureFromError(err)
	return packReply(wireformat.CallReply{Status: uint32(status), Failure: &f})
}

func packReply(reply wireformat.CallReply) uint64 {
	raw, err := json.Marshal(reply)
	if err != nil {
		return 0
	}
	return abi.PtrFromBytes(raw)
}
