package eventlogdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecute_AppendsReturnedEvent(t *testing.T) {
	db := openTestDB(t)
	id := model.NewOrderId()

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(1, []byte{0x01}))

	err := db.Execute(context.Background(), id, func(cfd any) (*model.CfdEvent, error) {
		return &model.CfdEvent{Kind: model.ManualCommit, Tx: tx}, nil
	})
	require.NoError(t, err)

	results, err := db.LoadAllOpenCfds(context.Background())
	require.NoError(t, err)

	var got []eventlogOpenCfd
	for r := range results {
		require.NoError(t, r.Err)
		got = append(got, eventlogOpenCfd{id: r.Cfd.Id, events: r.Cfd.Events})
	}

	require.Len(t, got, 1)
	require.Equal(t, id.String(), got[0].id.String())
	require.Len(t, got[0].events, 1)
	require.Equal(t, model.ManualCommit, got[0].events[0].Kind)
	require.Equal(t, tx.TxHash(), got[0].events[0].Tx.TxHash())
}

type eventlogOpenCfd struct {
	id     model.OrderId
	events []model.CfdEvent
}

func TestExecute_HandlerDecliningLeavesNoEvent(t *testing.T) {
	db := openTestDB(t)
	id := model.NewOrderId()

	err := db.Execute(context.Background(), id, func(cfd any) (*model.CfdEvent, error) {
		return nil, nil
	})
	require.NoError(t, err)

	results, err := db.LoadAllOpenCfds(context.Background())
	require.NoError(t, err)

	var count int
	for range results {
		count++
	}
	require.Zero(t, count)
}

func TestLoadAllOpenCfds_SkipsTerminalContracts(t *testing.T) {
	db := openTestDB(t)
	id := model.NewOrderId()

	for _, kind := range []model.EventKind{model.ManualCommit, model.CommitConfirmed, model.CetConfirmed} {
		var tx *wire.MsgTx
		if kind == model.ManualCommit {
			tx = wire.NewMsgTx(wire.TxVersion)
			tx.AddTxOut(wire.NewTxOut(1, []byte{0x02}))
		}
		k := kind
		txCopy := tx
		err := db.Execute(context.Background(), id, func(cfd any) (*model.CfdEvent, error) {
			return &model.CfdEvent{Kind: k, Tx: txCopy}, nil
		})
		require.NoError(t, err)
	}

	results, err := db.LoadAllOpenCfds(context.Background())
	require.NoError(t, err)

	var count int
	for range results {
		count++
	}
	require.Zero(t, count)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	db, err := Open(path)
	require.NoError(t, err)

	id := model.NewOrderId()
	err = db.Execute(context.Background(), id, func(cfd any) (*model.CfdEvent, error) {
		return &model.CfdEvent{Kind: model.CetTimelockExpiredPriorOracleAttestation}, nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.FileExists(t, path)

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.LoadAllOpenCfds(context.Background())
	require.NoError(t, err)

	var count int
	for r := range results {
		require.NoError(t, r.Err)
		count++
	}
	require.Equal(t, 1, count)
}
