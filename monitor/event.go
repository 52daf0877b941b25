package monitor

import "github.com/itchysats/cfdmonitor/model"

// EventKind is the discriminator of a lifecycle event emitted by the
// ConfirmationEngine.
type EventKind string

const (
	LockFinality            EventKind = "LockFinality"
	CommitFinality          EventKind = "CommitFinality"
	CloseFinality           EventKind = "CloseFinality"
	CetFinality             EventKind = "CetFinality"
	CetTimelockExpired      EventKind = "CetTimelockExpired"
	RefundTimelockExpired   EventKind = "RefundTimelockExpired"
	RefundFinality          EventKind = "RefundFinality"
	RevokedTransactionFound EventKind = "RevokedTransactionFound"
)

// Event is a fired watch, ready to be converted into a lifecycle command on
// the external executor.
type Event struct {
	Kind    EventKind
	OrderId model.OrderId
}

func (e Event) String() string {
	return string(e.Kind) + "(" + e.OrderId.String() + ")"
}
