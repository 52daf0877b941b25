package model

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
)

// OrderId is an opaque, globally unique handle for one CFD. It is assigned
// once at contract setup and never changes for the lifetime of the
// contract.
type OrderId struct {
	id uuid.UUID
}

// NewOrderId generates a fresh, random OrderId.
func NewOrderId() OrderId {
	return OrderId{id: uuid.New()}
}

// OrderIdFromUUID wraps an existing uuid.UUID, e.g. one loaded from the
// event log.
func OrderIdFromUUID(id uuid.UUID) OrderId {
	return OrderId{id: id}
}

func (o OrderId) String() string {
	return o.id.String()
}

// Script is the output script that uniquely identifies a watched UTXO's
// locator on the indexer. Two watches may share a Script.
type Script []byte

func (s Script) String() string {
	return hex.EncodeToString(s)
}

// key is a comparable representation of a Script suitable for use as a map
// key, since a byte slice cannot be used directly.
func (s Script) key() string {
	return string(s)
}

// ScriptKey returns a comparable value uniquely identifying this Script,
// for use in maps keyed by script.
func (s Script) ScriptKey() string {
	return s.key()
}

// TxLocator identifies a single watched transaction on a single script. The
// script is what the indexer is queried with; the txid is what we use to
// pick the relevant entry out of the returned history.
type TxLocator struct {
	Txid   chainhash.Hash
	Script Script
}

func (l TxLocator) String() string {
	return l.Txid.String() + "@" + l.Script.String()
}
