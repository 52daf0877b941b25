package monitor

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/metrics"
)

// TransactionKind labels a broadcast for metrics/logging only; it has no bearing on broadcast semantics.
type TransactionKind int

const (
	Lock TransactionKind = iota
	Commit
	Refund
	CollaborativeClose
	Cet
)

// String returns the metric label for this kind, matching the
// TransactionKind::name().
func (k TransactionKind) String() string {
	switch k {
	case Lock:
		return "lock"
	case Commit:
		return "commit"
	case Refund:
		return "refund"
	case CollaborativeClose:
		return "collaborative-close"
	case Cet:
		return "contract-execution"
	default:
		return "unknown"
	}
}

// Broadcaster publishes raw transactions, normalizing "already in chain"
// indexer responses to success.
type Broadcaster struct {
	client indexer.Client
}

// NewBroadcaster constructs a Broadcaster backed by client.
func NewBroadcaster(client indexer.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

// Broadcast publishes tx, classifying indexer errors:
//
//   - RpcVerifyAlreadyInChain is treated as success.
//   - RpcVerifyError with message "bad-txns-inputs-missingorspent" triggers
//     a transaction_get lookup; if the transaction is found, that is also
//     treated as success.
//   - Every other error propagates, carrying the transaction's hex
//     encoding and kind as diagnostic context.
func (b *Broadcaster) Broadcast(tx *wire.MsgTx, kind TransactionKind) error {
	err := b.client.TransactionBroadcast(tx)
	if err == nil {
		log.Infof("Transaction published on chain: %v (kind=%s, value=%v)",
			tx.TxHash(), kind, totalOutputValue(tx))
		b.markBroadcastSuccess(kind)
		return nil
	}

	var protoErr *indexer.ProtocolError
	if errors.As(err, &protoErr) {
		if protoErr.Code == indexer.RPCVerifyAlreadyInChain {
			txid := tx.TxHash()
			log.Tracef("Attempted to broadcast transaction that was already on-chain: %v (kind=%s)",
				txid, kind)
			b.markBroadcastSuccess(kind)
			return nil
		}

		if protoErr.Code == indexer.RPCVerifyError && protoErr.Message == "bad-txns-inputs-missingorspent" {
			txid := tx.TxHash()
			if _, getErr := b.client.TransactionGet(txid); getErr == nil {
				log.Tracef("Attempted to broadcast transaction that was already on-chain: %v (kind=%s)",
					txid, kind)
				b.markBroadcastSuccess(kind)
				return nil
			}
		}
	}

	return fmt.Errorf("failed to broadcast transaction. Txid: %s. Kind: %s. Raw transaction: %s: %w",
		tx.TxHash(), kind, indexer.SerializeHex(tx), err)
}

// markBroadcastSuccess increments the broadcast counter for kind. Every
// success path, including idempotent already-in-chain rebroadcasts, counts:
// the counter tracks "transaction is on chain", not "this call was the one
// that put it there".
func (b *Broadcaster) markBroadcastSuccess(kind TransactionKind) {
	metrics.TransactionsBroadcastTotal.WithLabelValues(kind.String()).Inc()
}

// totalOutputValue sums a transaction's output values for diagnostic logging.
func totalOutputValue(tx *wire.MsgTx) btcutil.Amount {
	var total btcutil.Amount
	for _, out := range tx.TxOut {
		total += btcutil.Amount(out.Value)
	}
	return total
}
