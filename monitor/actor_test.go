package monitor

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/command"
	"github.com/itchysats/cfdmonitor/eventlog"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/itchysats/cfdmonitor/scriptstatus"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	cfds []eventlog.OpenCfd
}

func (s *fakeStore) LoadAllOpenCfds(ctx context.Context) (<-chan eventlog.OpenCfdResult, error) {
	out := make(chan eventlog.OpenCfdResult, len(s.cfds))
	for _, cfd := range s.cfds {
		out <- eventlog.OpenCfdResult{Cfd: cfd}
	}
	close(out)
	return out, nil
}

type fakeExecutor struct {
	calls  []model.OrderId
	events []*model.CfdEvent
}

func (e *fakeExecutor) Execute(ctx context.Context, orderId model.OrderId, handler command.Handler) error {
	e.calls = append(e.calls, orderId)
	event, err := handler(nil)
	e.events = append(e.events, event)
	return err
}

func lockTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(100_000, []byte{0x11}))
	return tx
}

func commitTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(99_000, []byte{0x22}))
	return tx
}

func TestMonitorActor_StartReplaysRebroadcastsAndRegistersWatches(t *testing.T) {
	id := model.NewOrderId()
	lock := lockTx()
	commit := commitTx()

	dlc := &model.Dlc{
		Lock:           model.LockTxn{Tx: lock, Script: model.Script{0x11}},
		Commit:         model.CommitTxn{Tx: commit, Script: model.Script{0x22}},
		RefundTxid:     commit.TxHash(),
		RefundScript:   model.Script{0x33},
		RefundTimelock: 2016,
	}

	events := []model.CfdEvent{
		{OrderId: id, Kind: model.ContractSetupCompleted, Dlc: dlc},
	}

	store := &fakeStore{cfds: []eventlog.OpenCfd{{Id: id, Events: events}}}
	broadcastClient := &fakeIndexerClient{}
	executor := &fakeExecutor{}

	actor := NewActor(Config{
		Indexer:  broadcastClient,
		Store:    store,
		Executor: executor,
	}, 100)

	err := actor.Start()
	require.NoError(t, err)
	defer actor.Stop()

	require.Equal(t, 5, actor.engine.NumMonitoring())
}

func TestMonitorActor_SyncDispatchesFiredEvents(t *testing.T) {
	id := model.NewOrderId()
	lock := lockTx()

	store := &fakeStore{}
	executor := &fakeExecutor{}

	client := &recordingIndexerClient{
		tip: 101,
		histories: map[string][]model.TxStatus{
			model.Script{0x11}.ScriptKey(): {{Height: 100, Txid: lock.TxHash()}},
		},
	}

	actor := NewActor(Config{Indexer: client, Store: store, Executor: executor}, 100)
	require.NoError(t, actor.Start())
	defer actor.Stop()

	actor.engine.Monitor(
		model.TxLocator{Txid: lock.TxHash(), Script: model.Script{0x11}},
		scriptstatus.Confirmed(1),
		Event{Kind: LockFinality, OrderId: id},
	)

	actor.sync()

	require.Len(t, executor.calls, 1)
	require.Equal(t, id, executor.calls[0])
	require.Len(t, executor.events, 1)
	require.NotNil(t, executor.events[0])
	require.Equal(t, model.LockConfirmed, executor.events[0].Kind)
}

func TestModelEventKindFor_MapsEveryLifecycleEventKind(t *testing.T) {
	cases := map[EventKind]model.EventKind{
		LockFinality:            model.LockConfirmed,
		CommitFinality:          model.CommitConfirmed,
		CloseFinality:           model.CollaborativeSettlementConfirmed,
		CetFinality:             model.CetConfirmed,
		CetTimelockExpired:      model.CetTimelockExpiredPriorOracleAttestation,
		RefundTimelockExpired:   model.RefundTimelockExpired,
		RefundFinality:          model.RefundConfirmed,
		RevokedTransactionFound: model.RevokeConfirmed,
	}

	for kind, want := range cases {
		got := modelEventKindFor(kind)
		require.Equal(t, want, got, "EventKind %v", kind)

		handler := handlerFor(kind)
		require.NotNil(t, handler, "EventKind %v", kind)
		event, err := handler(nil)
		require.NoError(t, err)
		require.Equal(t, want, event.Kind)
	}
}

// recordingIndexerClient is a fuller fake than fakeIndexerClient, serving a
// fixed tip and script histories for sync tests.
type recordingIndexerClient struct {
	tip       uint32
	histories map[string][]model.TxStatus
}

func (c *recordingIndexerClient) BlockHeadersSubscribe() (indexer.BlockHeader, error) {
	return indexer.BlockHeader{Height: c.tip}, nil
}

func (c *recordingIndexerClient) ScriptGetHistory(script model.Script) ([]model.TxStatus, error) {
	return c.histories[script.ScriptKey()], nil
}

func (c *recordingIndexerClient) TransactionBroadcast(tx *wire.MsgTx) error { return nil }

func (c *recordingIndexerClient) TransactionGet(txid chainhash.Hash) (*wire.MsgTx, error) {
	return nil, nil
}
