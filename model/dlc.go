package model

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// LockTxn is the funding transaction committing both parties' collateral.
type LockTxn struct {
	Tx     *wire.MsgTx
	Script Script
}

func (l LockTxn) Txid() chainhash.Hash {
	return l.Tx.TxHash()
}

// CommitTxn spends the lock into a shared output that can later be split
// by a CET or a refund.
type CommitTxn struct {
	Tx     *wire.MsgTx
	Script Script
}

func (c CommitTxn) Txid() chainhash.Hash {
	return c.Tx.TxHash()
}

// RefundTxn is the timelocked escape hatch from the commit.
type RefundTxn struct {
	Txid     chainhash.Hash
	Script   Script
	Timelock uint32
}

// RevokedCommit is a prior commit transaction made invalid by a rollover;
// its on-chain appearance indicates cheating by a counterparty.
type RevokedCommit struct {
	Txid   chainhash.Hash
	Script Script
}

// Dlc is the discreet log contract: the cryptographic construction that
// produces the lock/commit/refund/CET transaction family for one contract.
// Construction and signing of a Dlc is out of scope for this package; Dlc
// here is the minimal read-model the monitor needs.
type Dlc struct {
	Lock   LockTxn
	Commit CommitTxn

	// RefundTxid/RefundScript/RefundTimelock describe the refund
	// transaction. The refund script is the maker's script pubkey: by
	// convention either party's refund output script can be used to
	// locate the refund transaction on-chain, since both parties
	// contributed collateral.
	RefundTxid     chainhash.Hash
	RefundScript   Script
	RefundTimelock uint32

	RevokedCommits []RevokedCommit
}
