package monitor

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/itchysats/cfdmonitor/scriptstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hash(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestLockFinalizesAfterTwoSyncs(t *testing.T) {
	e := New(100)

	orderId := model.NewOrderId()
	txid := hash(1)
	script := model.Script("lock-script")
	loc := model.TxLocator{Txid: txid, Script: script}

	e.Monitor(loc, scriptstatus.WithConfirmations(model.LockFinalityConfirmations), Event{Kind: LockFinality, OrderId: orderId})

	fired := e.Update(100, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 0, Txid: txid}}},
	})
	assert.Empty(t, fired)

	fired = e.Update(105, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 105, Txid: txid}}},
	})
	require.Len(t, fired, 1)
	assert.Equal(t, LockFinality, fired[0].Kind)
	assert.Equal(t, orderId, fired[0].OrderId)
}

func TestRefundTimelock(t *testing.T) {
	e := New(200)

	orderId := model.NewOrderId()
	txid := hash(2)
	script := model.Script("commit-script")
	loc := model.TxLocator{Txid: txid, Script: script}

	e.Monitor(loc, scriptstatus.WithConfirmations(144), Event{Kind: RefundTimelockExpired, OrderId: orderId})

	fired := e.Update(342, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 200, Txid: txid}}},
	})
	assert.Empty(t, fired)

	fired = e.Update(343, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 200, Txid: txid}}},
	})
	require.Len(t, fired, 1)
	assert.Equal(t, RefundTimelockExpired, fired[0].Kind)
}

func TestRevokedCommitSightingFiresOnce(t *testing.T) {
	e := New(500)

	orderId := model.NewOrderId()
	txid := hash(3)
	script := model.Script("revoked-script")
	loc := model.TxLocator{Txid: txid, Script: script}

	e.Monitor(loc, scriptstatus.InMempoolTarget(), Event{Kind: RevokedTransactionFound, OrderId: orderId})

	fired := e.Update(501, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 0, Txid: txid}}},
	})
	require.Len(t, fired, 1)
	assert.Equal(t, RevokedTransactionFound, fired[0].Kind)

	// Further syncs still show it unconfirmed, but it must never fire
	// again.
	for i := 0; i < 3; i++ {
		fired = e.Update(uint32(502+i), []ScriptHistory{
			{Script: script, History: []model.TxStatus{{Height: 0, Txid: txid}}},
		})
		assert.Empty(t, fired)
	}
}

func TestPartialBatchLeavesMissingWatchesUnfired(t *testing.T) {
	// One script's history never arrived, simulating a fetcher timeout.
	e := New(10)

	id1, id2 := model.NewOrderId(), model.NewOrderId()
	txid1, txid2 := hash(4), hash(5)
	script1, script2 := model.Script("s1"), model.Script("s2")
	loc1 := model.TxLocator{Txid: txid1, Script: script1}
	loc2 := model.TxLocator{Txid: txid2, Script: script2}

	e.Monitor(loc1, scriptstatus.WithConfirmations(1), Event{Kind: LockFinality, OrderId: id1})
	e.Monitor(loc2, scriptstatus.WithConfirmations(1), Event{Kind: LockFinality, OrderId: id2})

	require.Equal(t, 2, len(e.MonitoringScripts()))

	// Only the first script's history arrived; the second is missing
	// entirely (simulating a fetcher timeout).
	fired := e.Update(11, []ScriptHistory{
		{Script: script1, History: []model.TxStatus{{Height: 11, Txid: txid1}}},
	})

	require.Len(t, fired, 1)
	assert.Equal(t, id1, fired[0].OrderId)
}

func TestIdempotentRegistration(t *testing.T) {
	e := New(1)

	orderId := model.NewOrderId()
	loc := model.TxLocator{Txid: hash(6), Script: model.Script("s")}
	ev := Event{Kind: LockFinality, OrderId: orderId}

	for i := 0; i < 5; i++ {
		e.Monitor(loc, scriptstatus.WithConfirmations(1), ev)
	}

	assert.Equal(t, 1, e.NumMonitoring())
	assert.Len(t, e.MonitoringScripts(), 1)
}

func TestMultipleWatchesSameLocatorDistinctEvents(t *testing.T) {
	e := New(1)

	id := model.NewOrderId()
	script := model.Script("s")
	loc := model.TxLocator{Txid: hash(7), Script: script}

	e.Monitor(loc, scriptstatus.WithConfirmations(1), Event{Kind: LockFinality, OrderId: id})
	e.Monitor(loc, scriptstatus.WithConfirmations(3), Event{Kind: CloseFinality, OrderId: id})

	assert.Equal(t, 2, e.NumMonitoring())

	fired := e.Update(3, []ScriptHistory{
		{Script: script, History: []model.TxStatus{{Height: 1, Txid: hash(7)}}},
	})

	require.Len(t, fired, 2)
	assert.Equal(t, LockFinality, fired[0].Kind)
	assert.Equal(t, CloseFinality, fired[1].Kind)
}

func TestRegistrationOrderEmission(t *testing.T) {
	e := New(10)

	var ids []model.OrderId
	var histories []ScriptHistory
	for i := 0; i < 5; i++ {
		id := model.NewOrderId()
		ids = append(ids, id)
		script := model.Script([]byte{byte(10 + i)})
		loc := model.TxLocator{Txid: hash(byte(10 + i)), Script: script}
		e.Monitor(loc, scriptstatus.WithConfirmations(1), Event{Kind: LockFinality, OrderId: id})
		histories = append(histories, ScriptHistory{
			Script:  script,
			History: []model.TxStatus{{Height: 10, Txid: loc.Txid}},
		})
	}

	fired := e.Update(10, histories)
	require.Len(t, fired, 5)
	for i, ev := range fired {
		assert.Equal(t, ids[i], ev.OrderId)
	}
}

func TestAtMostOnceFiringAcrossManyUpdates(t *testing.T) {
	e := New(0)

	id := model.NewOrderId()
	script := model.Script("s")
	loc := model.TxLocator{Txid: hash(42), Script: script}
	e.Monitor(loc, scriptstatus.WithConfirmations(1), Event{Kind: LockFinality, OrderId: id})

	fireCount := 0
	for tip := uint32(1); tip <= 50; tip++ {
		fired := e.Update(tip, []ScriptHistory{
			{Script: script, History: []model.TxStatus{{Height: 1, Txid: hash(42)}}},
		})
		fireCount += len(fired)
	}

	assert.Equal(t, 1, fireCount)
}
