// Package command defines the external command executor interface the
// monitor dispatches fired lifecycle events through. The full
// CFD aggregate and its optimistic-concurrency event store are external
// collaborators; this package only carries the
// narrow shape the monitor needs to invoke them.
package command

import (
	"context"

	"github.com/itchysats/cfdmonitor/model"
)

// Handler is invoked with the full CFD aggregate (opaque to this package)
// and decides whether a new event should be appended to the contract's
// event log. Returning (nil, nil) means the handler declined: no event is
// persisted.
type Handler func(cfd any) (*model.CfdEvent, error)

// Executor applies a Handler to the current aggregate for orderId under
// whatever optimistic-concurrency discipline the event store uses,
// persisting the resulting event (if any). Handler errors and persistence
// errors are both surfaced through the returned error; the monitor logs
// and continues rather than treating this as fatal.
type Executor interface {
	Execute(ctx context.Context, orderId model.OrderId, handler Handler) error
}
