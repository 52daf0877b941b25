package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/stretchr/testify/require"
)

type fakeHistoryClient struct {
	mu        sync.Mutex
	histories map[string][]model.TxStatus
	errs      map[string]error
}

func (f *fakeHistoryClient) BlockHeadersSubscribe() (indexer.BlockHeader, error) {
	return indexer.BlockHeader{}, nil
}

func (f *fakeHistoryClient) ScriptGetHistory(script model.Script) ([]model.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := script.ScriptKey()
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.histories[key], nil
}

func (f *fakeHistoryClient) TransactionBroadcast(tx *wire.MsgTx) error { return nil }

func (f *fakeHistoryClient) TransactionGet(txid chainhash.Hash) (*wire.MsgTx, error) {
	return nil, nil
}

func TestFetchHistories_ReturnsAllScripts(t *testing.T) {
	scripts := []model.Script{{0x01}, {0x02}, {0x03}}
	txid := chainhash.Hash{0xAA}

	client := &fakeHistoryClient{
		histories: map[string][]model.TxStatus{
			scripts[0].ScriptKey(): {{Height: 10, Txid: txid}},
			scripts[1].ScriptKey(): {},
			scripts[2].ScriptKey(): {{Height: 0, Txid: txid}},
		},
	}

	got := FetchHistories(context.Background(), client, scripts)
	require.Len(t, got, 3)

	byScript := make(map[string]ScriptHistory)
	for _, sh := range got {
		byScript[sh.Script.ScriptKey()] = sh
	}
	require.Contains(t, byScript, scripts[0].ScriptKey())
	require.Contains(t, byScript, scripts[1].ScriptKey())
	require.Contains(t, byScript, scripts[2].ScriptKey())
}

func TestFetchHistories_PerScriptErrorYieldsNoEntry(t *testing.T) {
	scripts := []model.Script{{0x01}, {0x02}}
	client := &fakeHistoryClient{
		histories: map[string][]model.TxStatus{},
		errs: map[string]error{
			scripts[0].ScriptKey(): errors.New("boom"),
		},
	}

	got := FetchHistories(context.Background(), client, scripts)
	require.Len(t, got, 1)
	require.Equal(t, scripts[1].ScriptKey(), got[0].Script.ScriptKey())
}

func TestFetchHistories_MoreThanOneBatch(t *testing.T) {
	scripts := make([]model.Script, model.BatchSize+5)
	histories := map[string][]model.TxStatus{}
	for i := range scripts {
		scripts[i] = model.Script{byte(i), byte(i >> 8)}
		histories[scripts[i].ScriptKey()] = nil
	}

	client := &fakeHistoryClient{histories: histories}

	got := FetchHistories(context.Background(), client, scripts)
	require.Len(t, got, len(scripts))
}

func TestFetchHistories_EmptyInput(t *testing.T) {
	client := &fakeHistoryClient{histories: map[string][]model.TxStatus{}}
	got := FetchHistories(context.Background(), client, nil)
	require.Empty(t, got)
}
