package indexer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RPC error codes used by the indexer's verify-transaction path. These
// mirror bitcoind's RPC_VERIFY_* codes, which the indexer forwards
// verbatim.
const (
	RPCVerifyError          int64 = -25
	RPCVerifyRejected       int64 = -26
	RPCVerifyAlreadyInChain int64 = -27
)

// rpcErrorPrefix is the literal prefix an indexer-style RPC error body
// carries before its JSON payload.
const rpcErrorPrefix = "RPC error: "

// ProtocolError is a parsed {code, message} error returned by the indexer
// in response to an RPC call, e.g. transaction_broadcast.
type ProtocolError struct {
	Code    int64
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("indexer RPC error %d: %s", e.Code, e.Message)
}

// ParseRPCProtocolError parses an indexer error body of the form
// "RPC error: {"code":-27,"message":"..."}" into a ProtocolError. It
// returns an error if raw does not carry the expected prefix or JSON body.
func ParseRPCProtocolError(raw string) (*ProtocolError, error) {
	idx := strings.Index(raw, rpcErrorPrefix)
	if idx == -1 {
		return nil, fmt.Errorf("indexer: unknown error format, missing %q prefix: %s", rpcErrorPrefix, raw)
	}

	jsonBody := raw[idx+len(rpcErrorPrefix):]

	var parsed ProtocolError
	if err := json.Unmarshal([]byte(jsonBody), &parsed); err != nil {
		return nil, fmt.Errorf("indexer: error body has unexpected format: %w", err)
	}

	return &parsed, nil
}
