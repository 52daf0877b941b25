// Package scriptstatus expresses "what we are waiting for" on a watched
// output: whether it has appeared in the mempool, or confirmed to a given
// depth.
package scriptstatus

import (
	"fmt"

	"github.com/itchysats/cfdmonitor/model"
)

// kind orders the variants of ScriptStatus so that "observed >= target" can
// be tested with a plain comparison.
type kind uint8

const (
	kindUnknown kind = iota
	kindInMempool
	kindConfirmed
)

// ScriptStatus is the condition a watch is waiting for, or the condition
// last observed for a watched locator. The zero value is Unknown, which
// sorts below every other status.
//
// Ordering: Unknown < InMempool < Confirmed(1) < Confirmed(2) < ...
type ScriptStatus struct {
	kind  kind
	depth uint32 // only meaningful when kind == kindConfirmed
}

// Unknown is the status of a locator about which we have no information at
// all: the indexer returned no history entry matching its txid.
var Unknown = ScriptStatus{kind: kindUnknown}

// InMempool is the status of a transaction that has been observed but not
// yet included in a block.
var InMempool = ScriptStatus{kind: kindInMempool}

// Confirmed constructs the status of a transaction that is n blocks deep,
// n >= 1.
func Confirmed(n uint32) ScriptStatus {
	if n == 0 {
		panic("scriptstatus: Confirmed requires n >= 1, use InMempool for n == 0")
	}
	return ScriptStatus{kind: kindConfirmed, depth: n}
}

// WithConfirmations builds the target status for a watch that should fire
// once a locator is k-deep. k == 0 is accepted here (unlike Confirmed) and
// is normalized to InMempool: "0 confirmations" means "seen at all".
func WithConfirmations(k uint32) ScriptStatus {
	if k == 0 {
		return InMempool
	}
	return Confirmed(k)
}

// InMempoolTarget builds the target status for a watch that fires as soon
// as a locator is merely observed, confirmed or not.
func InMempoolTarget() ScriptStatus {
	return InMempool
}

// Depth returns the confirmation depth for a Confirmed status, and 0
// otherwise.
func (s ScriptStatus) Depth() uint32 {
	if s.kind != kindConfirmed {
		return 0
	}
	return s.depth
}

// IsUnknown reports whether no information is available for this locator.
func (s ScriptStatus) IsUnknown() bool {
	return s.kind == kindUnknown
}

// IsConfirmed reports whether the status represents a mined transaction.
func (s ScriptStatus) IsConfirmed() bool {
	return s.kind == kindConfirmed
}

// Less reports whether s sorts strictly before other in the total order
// Unknown < InMempool < Confirmed(1) < Confirmed(2) < ...
func (s ScriptStatus) Less(other ScriptStatus) bool {
	if s.kind != other.kind {
		return s.kind < other.kind
	}
	return s.depth < other.depth
}

// AtLeast reports whether s satisfies a watch whose target is other, i.e.
// whether s >= other in the total order.
func (s ScriptStatus) AtLeast(other ScriptStatus) bool {
	return !s.Less(other)
}

func (s ScriptStatus) String() string {
	switch s.kind {
	case kindUnknown:
		return "unknown"
	case kindInMempool:
		return "in-mempool"
	case kindConfirmed:
		return fmt.Sprintf("confirmed(%d)", s.depth)
	default:
		return "invalid"
	}
}

// FromTxStatus derives a ScriptStatus from an indexer history entry and the
// current tip height:
//
//	if height == 0 or height > tip: InMempool
//	else: Confirmed(tip - height + 1)
//
// A negative height (Electrum's "unconfirmed with unconfirmed parents"
// convention) is treated the same as height == 0.
func FromTxStatus(status model.TxStatus, tipHeight uint32) ScriptStatus {
	if status.Unconfirmed() {
		return InMempool
	}

	height := uint32(status.Height)
	if height > tipHeight {
		return InMempool
	}

	depth := tipHeight - height + 1
	return Confirmed(depth)
}
