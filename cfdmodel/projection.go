// Package cfdmodel implements the CfdProjection: a pure
// fold from a contract's append-only event log into the minimal record
// the monitor needs to decide what to watch and what to rebroadcast.
package cfdmodel

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/model"
)

// CollaborativeClose is the locator of a collaborative settlement
// transaction.
type CollaborativeClose struct {
	Txid   chainhash.Hash
	Script model.Script
}

// CetLocator is the locator of a contract execution transaction, derived
// from its first output.
type CetLocator struct {
	Txid   chainhash.Hash
	Script model.Script
}

// Cfd is the read-model of a contract the monitor needs. It
// is rebuilt from scratch by folding the full event log every time the
// monitor starts; no part of it is itself persisted.
type Cfd struct {
	Id model.OrderId

	Lock             *model.LockTxn
	MonitorLockFinality bool

	CollaborativeSettlement                *CollaborativeClose
	MonitorCollaborativeSettlementFinality bool

	Commit                *model.CommitTxn
	MonitorCommitFinality bool
	MonitorCetTimelock    bool
	MonitorRefundTimelock bool

	Cet                *CetLocator
	MonitorCetFinality bool

	Refund                *model.RefundTxn
	MonitorRefundFinality bool

	MonitorRevokedCommitTransactions []model.RevokedCommit

	// Rebroadcast transactions queued at startup.
	BroadcastLock   *wire.MsgTx
	BroadcastCet    *wire.MsgTx
	BroadcastCommit *wire.MsgTx

	Version uint32
}

// New constructs the zero-value projection for a freshly seen contract id:
// nothing is being monitored and there is nothing to rebroadcast until the
// first relevant event is folded in.
func New(id model.OrderId) Cfd {
	return Cfd{Id: id}
}

// FromEvents folds a full event log into a projection from scratch. Folding
// the same log from empty always yields a byte-identical record modulo
// Version, which equals len(events).
func FromEvents(id model.OrderId, events []model.CfdEvent) Cfd {
	cfd := New(id)
	for _, event := range events {
		cfd = Fold(cfd, event)
	}
	return cfd
}

// Fold applies a single event to cfd, returning the updated record. Version
// is incremented for every event regardless of kind.
func Fold(cfd Cfd, event model.CfdEvent) Cfd {
	cfd.Version++

	switch event.Kind {
	case model.ContractSetupCompleted:
		if event.Dlc == nil {
			// The "dlc: None" variant carries no new monitoring
			// information.
			return cfd
		}
		dlc := event.Dlc

		cfd.Lock = &dlc.Lock
		cfd.MonitorLockFinality = true
		cfd.Commit = &dlc.Commit
		cfd.MonitorCommitFinality = true
		cfd.MonitorCetTimelock = true
		cfd.MonitorRefundTimelock = true
		cfd.Refund = &model.RefundTxn{
			Txid:     dlc.RefundTxid,
			Script:   dlc.RefundScript,
			Timelock: dlc.RefundTimelock,
		}
		cfd.MonitorRefundFinality = true
		cfd.MonitorRevokedCommitTransactions = nil
		cfd.BroadcastLock = dlc.Lock.Tx

	case model.RolloverCompleted:
		if event.Dlc == nil {
			return cfd
		}
		dlc := event.Dlc

		cfd.MonitorLockFinality = false
		cfd.Commit = &dlc.Commit
		cfd.MonitorCommitFinality = true
		cfd.MonitorCetTimelock = true
		cfd.MonitorRefundTimelock = true
		cfd.Refund = &model.RefundTxn{
			Txid:     dlc.RefundTxid,
			Script:   dlc.RefundScript,
			Timelock: dlc.RefundTimelock,
		}
		cfd.MonitorRefundFinality = true
		cfd.MonitorRevokedCommitTransactions = dlc.RevokedCommits
		cfd.BroadcastLock = nil

	case model.CollaborativeSettlementCompleted:
		cfd.CollaborativeSettlement = &CollaborativeClose{
			Txid:   event.SpendTxid,
			Script: event.SpendScript,
		}
		cfd.MonitorCollaborativeSettlementFinality = true
		// Lock is already final if we collab settle.
		cfd.MonitorLockFinality = false
		cfd.BroadcastLock = nil

	case model.LockConfirmed, model.LockConfirmedAfterFinality:
		cfd.MonitorLockFinality = false
		cfd.BroadcastLock = nil

	case model.ManualCommit:
		cfd.BroadcastCommit = event.Tx

	case model.CommitConfirmed:
		cfd.MonitorCommitFinality = false
		cfd.BroadcastCommit = nil

	case model.CetConfirmed, model.RefundConfirmed, model.CollaborativeSettlementConfirmed:
		// Final states: don't monitor or rebroadcast anything.
		cfd.MonitorLockFinality = false
		cfd.MonitorCommitFinality = false
		cfd.MonitorCetTimelock = false
		cfd.MonitorRefundTimelock = false
		cfd.MonitorRefundFinality = false
		cfd.MonitorRevokedCommitTransactions = nil
		cfd.MonitorCollaborativeSettlementFinality = false
		cfd.MonitorCetFinality = false
		cfd.BroadcastLock = nil
		cfd.BroadcastCet = nil
		cfd.BroadcastCommit = nil

	case model.CetTimelockExpiredPriorOracleAttestation:
		cfd.MonitorCetTimelock = false

	case model.CetTimelockExpiredPostOracleAttestation, model.OracleAttestedPostCetTimelock:
		cfd.BroadcastCet = event.Cet
		cfd.MonitorCetTimelock = false
		if loc, ok := deriveCetLocator(event.Cet); ok {
			cfd.Cet = loc
			cfd.MonitorCetFinality = true
		}

	case model.RefundTimelockExpired:
		cfd.MonitorRefundTimelock = false

	case model.RevokeConfirmed:
		// Reserved: no transition defined for this kind. Preserved as a documented no-op.

	default:
		// ContractSetupStarted, ContractSetupFailed, OfferRejected,
		// RolloverStarted, RolloverAccepted, RolloverRejected,
		// RolloverFailed, OracleAttestedPriorCetTimelock,
		// CollaborativeSettlementStarted/ProposalAccepted/Rejected/
		// Failed: none of these change what is monitored or queued
		// for rebroadcast.
	}

	return cfd
}

// deriveCetLocator extracts the locator for a CET from its first output.
// If the CET has no outputs, the error is logged and the guard is left
// disabled.
func deriveCetLocator(cet *wire.MsgTx) (*CetLocator, bool) {
	if cet == nil || len(cet.TxOut) == 0 {
		log.Errorf("Failed to monitor cet using script pubkey because no TxOut's in CET")
		return nil, false
	}

	return &CetLocator{
		Txid:   cet.TxHash(),
		Script: model.Script(cet.TxOut[0].PkScript),
	}, true
}
