package model

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// TxStatus is one entry of a script's history, as returned by the indexer's
// script_get_history call. Height == 0 means unconfirmed; a negative height
// (Electrum's "unconfirmed with unconfirmed parents" convention) is also
// treated as unconfirmed by callers.
type TxStatus struct {
	Height int32
	Txid   chainhash.Hash
}

// Unconfirmed reports whether this entry should be treated as sitting in
// the mempool rather than included in a block.
func (s TxStatus) Unconfirmed() bool {
	return s.Height <= 0
}
