// Package eventlog defines the read-only interface the monitor uses to
// rebuild its per-contract projections at startup. The
// monitor never writes to the event log: the full store, including its
// append path and optimistic concurrency control, is an external
// collaborator.
package eventlog

import (
	"context"

	"github.com/itchysats/cfdmonitor/model"
)

// OpenCfd is one row of the event log store's view of an open contract:
// its id together with its full, in-order event history.
type OpenCfd struct {
	Id     model.OrderId
	Events []model.CfdEvent
}

// Store streams the event log for every contract that has not yet reached
// a terminal state.
type Store interface {
	// LoadAllOpenCfds streams every open contract's event history. A
	// per-contract load failure is reported via OpenCfdResult.Err and
	// must not abort the stream: callers should log and
	// continue to the next result.
	LoadAllOpenCfds(ctx context.Context) (<-chan OpenCfdResult, error)
}

// OpenCfdResult is one element of the stream returned by
// Store.LoadAllOpenCfds.
type OpenCfdResult struct {
	Cfd OpenCfd
	Err error
}
