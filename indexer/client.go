// Package indexer defines the narrow Electrum-style interface the monitor
// depends on, plus a concrete implementation backed by
// btcd/rpcclient, grounded on the chainntnfs/btcdnotify package.
package indexer

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/model"
)

// BlockHeader is the minimal result of a header subscription: the current
// chain tip height.
type BlockHeader struct {
	Height uint32
}

// Client is the four-operation Electrum-style interface the
// monitor depends on. Implementations must apply the
// IndexerClientTimeout (model.IndexerClientTimeout) to both connection
// setup and every individual request.
type Client interface {
	// BlockHeadersSubscribe returns the current chain tip. The monitor
	// calls this once per sync; it does not retain the subscription.
	BlockHeadersSubscribe() (BlockHeader, error)

	// ScriptGetHistory returns the full transaction history observed
	// for a script. A height of 0 means unconfirmed; a negative height
	// means "unconfirmed with unconfirmed parents" and must also be
	// treated as unconfirmed by callers (model.TxStatus.Unconfirmed).
	ScriptGetHistory(script model.Script) ([]model.TxStatus, error)

	// TransactionBroadcast publishes a raw transaction. Protocol-level
	// failures are returned as *ProtocolError so the caller can
	// classify them.
	TransactionBroadcast(tx *wire.MsgTx) error

	// TransactionGet fetches a transaction by its id. It is used by the
	// broadcaster's "bad-txns-inputs-missingorspent" remedy.
	TransactionGet(txid chainhash.Hash) (*wire.MsgTx, error)
}
