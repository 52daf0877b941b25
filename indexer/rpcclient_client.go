package indexer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/model"
)

// RPCClient is a Client backed by a single indexer RPC endpoint, grounded
// on the chainntnfs/btcdnotify package, which drives the same
// underlying btcd/rpcclient.Client against a chain backend. Electrum-style
// indexers expose script_get_history and similar calls outside of the
// standard Bitcoin Core RPC surface, so those are dispatched through
// RawRequest rather than a typed rpcclient method.
type RPCClient struct {
	conn *rpcclient.Client
}

// NewRPCClient dials the indexer at addr over HTTP POST without TLS. It sets
// no timeout of its own: neither the connection nor any request made
// through the returned client is bounded by model.IndexerClientTimeout.
func NewRPCClient(addr, user, pass string) (*RPCClient, error) {
	cfg := &rpcclient.ConnConfig{
		Host:         addr,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	conn, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to dial %s: %w", addr, err)
	}

	return &RPCClient{conn: conn}, nil
}

func (c *RPCClient) BlockHeadersSubscribe() (BlockHeader, error) {
	raw, err := c.conn.RawRequest("blockchain.headers.subscribe", nil)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("indexer: block_headers_subscribe: %w", err)
	}

	var resp struct {
		Height uint32 `json:"height"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return BlockHeader{}, fmt.Errorf("indexer: malformed header response: %w", err)
	}

	return BlockHeader{Height: resp.Height}, nil
}

func (c *RPCClient) ScriptGetHistory(script model.Script) ([]model.TxStatus, error) {
	scriptHash := chainhash.HashH(script)

	param, err := json.Marshal(scriptHash.String())
	if err != nil {
		return nil, err
	}

	raw, err := c.conn.RawRequest("blockchain.scripthash.get_history", []json.RawMessage{param})
	if err != nil {
		return nil, fmt.Errorf("indexer: script_get_history: %w", err)
	}

	var entries []struct {
		Height int32  `json:"height"`
		TxHash string `json:"tx_hash"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("indexer: malformed history response: %w", err)
	}

	out := make([]model.TxStatus, 0, len(entries))
	for _, e := range entries {
		txid, err := chainhash.NewHashFromStr(e.TxHash)
		if err != nil {
			return nil, fmt.Errorf("indexer: malformed txid %q: %w", e.TxHash, err)
		}
		out = append(out, model.TxStatus{Height: e.Height, Txid: *txid})
	}

	return out, nil
}

func (c *RPCClient) TransactionBroadcast(tx *wire.MsgTx) error {
	_, err := c.conn.SendRawTransaction(tx, false)
	if err != nil {
		return classifyBroadcastError(err)
	}
	return nil
}

func (c *RPCClient) TransactionGet(txid chainhash.Hash) (*wire.MsgTx, error) {
	rawTx, err := c.conn.GetRawTransaction(&txid)
	if err != nil {
		return nil, fmt.Errorf("indexer: transaction_get %s: %w", txid, err)
	}
	return rawTx.MsgTx(), nil
}

// classifyBroadcastError re-wraps a raw RPC client error as a
// *ProtocolError when it carries the "RPC error: {...}" body described in
// so that Broadcaster can apply its idempotence rules.
func classifyBroadcastError(err error) error {
	parsed, parseErr := ParseRPCProtocolError(err.Error())
	if parseErr != nil {
		return err
	}
	return parsed
}

// SerializeHex hex-encodes a transaction for diagnostic context, matching
// the convention of hex-encoding a transaction in broadcast failure messages.
func SerializeHex(tx *wire.MsgTx) string {
	var buf bytes.Buffer
	_ = tx.Serialize(&buf)
	return hex.EncodeToString(buf.Bytes())
}
