package model

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// EventKind discriminates the events stored in a contract's append-only
// event log. Folding is implemented by cfdmodel.Fold;
// this package only carries the data.
type EventKind string

const (
	ContractSetupCompleted    EventKind = "ContractSetupCompleted"
	ContractSetupStarted      EventKind = "ContractSetupStarted"
	ContractSetupFailed       EventKind = "ContractSetupFailed"
	OfferRejected             EventKind = "OfferRejected"
	RolloverStarted           EventKind = "RolloverStarted"
	RolloverAccepted          EventKind = "RolloverAccepted"
	RolloverRejected          EventKind = "RolloverRejected"
	RolloverFailed            EventKind = "RolloverFailed"
	RolloverCompleted         EventKind = "RolloverCompleted"
	CollaborativeSettlementStarted           EventKind = "CollaborativeSettlementStarted"
	CollaborativeSettlementProposalAccepted  EventKind = "CollaborativeSettlementProposalAccepted"
	CollaborativeSettlementRejected          EventKind = "CollaborativeSettlementRejected"
	CollaborativeSettlementFailed            EventKind = "CollaborativeSettlementFailed"
	CollaborativeSettlementCompleted         EventKind = "CollaborativeSettlementCompleted"
	CollaborativeSettlementConfirmed         EventKind = "CollaborativeSettlementConfirmed"
	LockConfirmed               EventKind = "LockConfirmed"
	LockConfirmedAfterFinality  EventKind = "LockConfirmedAfterFinality"
	ManualCommit                EventKind = "ManualCommit"
	CommitConfirmed             EventKind = "CommitConfirmed"
	CetTimelockExpiredPriorOracleAttestation EventKind = "CetTimelockExpiredPriorOracleAttestation"
	CetTimelockExpiredPostOracleAttestation  EventKind = "CetTimelockExpiredPostOracleAttestation"
	OracleAttestedPriorCetTimelock           EventKind = "OracleAttestedPriorCetTimelock"
	OracleAttestedPostCetTimelock            EventKind = "OracleAttestedPostCetTimelock"
	CetConfirmed                EventKind = "CetConfirmed"
	RefundTimelockExpired        EventKind = "RefundTimelockExpired"
	RefundConfirmed              EventKind = "RefundConfirmed"
	RevokeConfirmed              EventKind = "RevokeConfirmed"
)

// CfdEvent is one entry of a contract's append-only event log. Only the
// fields relevant to the kind in question are populated; the rest are left
// at their zero value. Kind and payload are flattened into a single
// struct rather than a tagged union, which is the
// idiom the fold in cfdmodel.Fold switches on.
type CfdEvent struct {
	OrderId OrderId
	Kind    EventKind

	// Dlc carries the transaction family for ContractSetupCompleted and
	// RolloverCompleted. A nil Dlc (the "no DLC" case,
	// used for the maker's own copy of certain events) means the event
	// carries no new monitoring information and should be folded as a
	// no-op.
	Dlc *Dlc

	// Tx carries the transaction payload for ManualCommit (the manually
	// published commit transaction).
	Tx *wire.MsgTx

	// Cet carries the transaction payload for
	// CetTimelockExpiredPostOracleAttestation and
	// OracleAttestedPostCetTimelock.
	Cet *wire.MsgTx

	// SpendTxid/SpendScript carry the collaborative settlement
	// transaction id and script for CollaborativeSettlementCompleted.
	SpendTxid   chainhash.Hash
	SpendScript Script
}
