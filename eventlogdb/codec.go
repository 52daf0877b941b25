package eventlogdb

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/itchysats/cfdmonitor/model"
)

// eventDTO is the on-disk representation of a model.CfdEvent. model.CfdEvent
// itself is not safely JSON-roundtrippable: model.OrderId hides its uuid in
// an unexported field, and wire.MsgTx needs wire-format (de)serialization
// rather than JSON reflection.
type eventDTO struct {
	OrderID string         `json:"order_id"`
	Kind    model.EventKind `json:"kind"`

	Dlc *dlcDTO `json:"dlc,omitempty"`
	Tx  string  `json:"tx,omitempty"`
	Cet string  `json:"cet,omitempty"`

	SpendTxid   string `json:"spend_txid,omitempty"`
	SpendScript string `json:"spend_script,omitempty"`
}

type dlcDTO struct {
	LockTx       string `json:"lock_tx"`
	LockScript   string `json:"lock_script"`
	CommitTx     string `json:"commit_tx"`
	CommitScript string `json:"commit_script"`

	RefundTxid     string `json:"refund_txid"`
	RefundScript   string `json:"refund_script"`
	RefundTimelock uint32 `json:"refund_timelock"`

	RevokedCommits []revokedCommitDTO `json:"revoked_commits,omitempty"`
}

type revokedCommitDTO struct {
	Txid   string `json:"txid"`
	Script string `json:"script"`
}

func encodeEvent(event model.CfdEvent) ([]byte, error) {
	dto := eventDTO{
		OrderID: event.OrderId.String(),
		Kind:    event.Kind,
	}

	if event.Dlc != nil {
		d, err := encodeDlc(event.Dlc)
		if err != nil {
			return nil, err
		}
		dto.Dlc = d
	}

	if event.Tx != nil {
		hexTx, err := serializeTx(event.Tx)
		if err != nil {
			return nil, err
		}
		dto.Tx = hexTx
	}

	if event.Cet != nil {
		hexTx, err := serializeTx(event.Cet)
		if err != nil {
			return nil, err
		}
		dto.Cet = hexTx
	}

	if event.SpendTxid != (chainhash.Hash{}) {
		dto.SpendTxid = event.SpendTxid.String()
		dto.SpendScript = hex.EncodeToString(event.SpendScript)
	}

	return json.Marshal(dto)
}

func decodeEvent(raw []byte) (model.CfdEvent, error) {
	var dto eventDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return model.CfdEvent{}, fmt.Errorf("eventlogdb: malformed event: %w", err)
	}

	id, err := uuid.Parse(dto.OrderID)
	if err != nil {
		return model.CfdEvent{}, fmt.Errorf("eventlogdb: malformed order id %q: %w", dto.OrderID, err)
	}

	event := model.CfdEvent{
		OrderId: model.OrderIdFromUUID(id),
		Kind:    dto.Kind,
	}

	if dto.Dlc != nil {
		dlc, err := decodeDlc(dto.Dlc)
		if err != nil {
			return model.CfdEvent{}, err
		}
		event.Dlc = dlc
	}

	if dto.Tx != "" {
		tx, err := deserializeTx(dto.Tx)
		if err != nil {
			return model.CfdEvent{}, err
		}
		event.Tx = tx
	}

	if dto.Cet != "" {
		tx, err := deserializeTx(dto.Cet)
		if err != nil {
			return model.CfdEvent{}, err
		}
		event.Cet = tx
	}

	if dto.SpendTxid != "" {
		txid, err := chainhash.NewHashFromStr(dto.SpendTxid)
		if err != nil {
			return model.CfdEvent{}, fmt.Errorf("eventlogdb: malformed spend txid: %w", err)
		}
		event.SpendTxid = *txid

		script, err := hex.DecodeString(dto.SpendScript)
		if err != nil {
			return model.CfdEvent{}, fmt.Errorf("eventlogdb: malformed spend script: %w", err)
		}
		event.SpendScript = script
	}

	return event, nil
}

func encodeDlc(dlc *model.Dlc) (*dlcDTO, error) {
	lockTx, err := serializeTx(dlc.Lock.Tx)
	if err != nil {
		return nil, err
	}
	commitTx, err := serializeTx(dlc.Commit.Tx)
	if err != nil {
		return nil, err
	}

	out := &dlcDTO{
		LockTx:         lockTx,
		LockScript:     hex.EncodeToString(dlc.Lock.Script),
		CommitTx:       commitTx,
		CommitScript:   hex.EncodeToString(dlc.Commit.Script),
		RefundTxid:     dlc.RefundTxid.String(),
		RefundScript:   hex.EncodeToString(dlc.RefundScript),
		RefundTimelock: dlc.RefundTimelock,
	}

	for _, revoked := range dlc.RevokedCommits {
		out.RevokedCommits = append(out.RevokedCommits, revokedCommitDTO{
			Txid:   revoked.Txid.String(),
			Script: hex.EncodeToString(revoked.Script),
		})
	}

	return out, nil
}

func decodeDlc(dto *dlcDTO) (*model.Dlc, error) {
	lockTx, err := deserializeTx(dto.LockTx)
	if err != nil {
		return nil, err
	}
	commitTx, err := deserializeTx(dto.CommitTx)
	if err != nil {
		return nil, err
	}
	lockScript, err := hex.DecodeString(dto.LockScript)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: malformed lock script: %w", err)
	}
	commitScript, err := hex.DecodeString(dto.CommitScript)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: malformed commit script: %w", err)
	}
	refundTxid, err := chainhash.NewHashFromStr(dto.RefundTxid)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: malformed refund txid: %w", err)
	}
	refundScript, err := hex.DecodeString(dto.RefundScript)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: malformed refund script: %w", err)
	}

	dlc := &model.Dlc{
		Lock:           model.LockTxn{Tx: lockTx, Script: lockScript},
		Commit:         model.CommitTxn{Tx: commitTx, Script: commitScript},
		RefundTxid:     *refundTxid,
		RefundScript:   refundScript,
		RefundTimelock: dto.RefundTimelock,
	}

	for _, revoked := range dto.RevokedCommits {
		txid, err := chainhash.NewHashFromStr(revoked.Txid)
		if err != nil {
			return nil, fmt.Errorf("eventlogdb: malformed revoked commit txid: %w", err)
		}
		script, err := hex.DecodeString(revoked.Script)
		if err != nil {
			return nil, fmt.Errorf("eventlogdb: malformed revoked commit script: %w", err)
		}
		dlc.RevokedCommits = append(dlc.RevokedCommits, model.RevokedCommit{Txid: *txid, Script: script})
	}

	return dlc, nil
}

func serializeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("eventlogdb: failed to serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func deserializeTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: malformed transaction hex: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("eventlogdb: failed to deserialize transaction: %w", err)
	}
	return tx, nil
}
