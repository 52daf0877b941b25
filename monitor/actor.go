package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/itchysats/cfdmonitor/cfdmodel"
	"github.com/itchysats/cfdmonitor/command"
	"github.com/itchysats/cfdmonitor/eventlog"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/metrics"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/itchysats/cfdmonitor/scriptstatus"
)

// Config bundles the collaborators a MonitorActor needs.
type Config struct {
	// Indexer is the Electrum-style chain indexer client.
	Indexer indexer.Client

	// Store streams open contracts for the startup replay.
	Store eventlog.Store

	// Executor applies a fired Event's handler to the contract's event
	// log.
	Executor command.Executor
}

// MonitorActor is the orchestrator: it owns a
// ConfirmationEngine and a Broadcaster, replays the event log at startup to
// seed both, and runs a single goroutine that periodically re-syncs and
// handles incoming monitoring requests.
type MonitorActor struct {
	started uint32
	stopped uint32

	cfg Config

	engine      *Engine
	broadcaster *Broadcaster

	requests chan request

	quit chan struct{}
	wg   sync.WaitGroup
}

// request is the internal envelope for messages handled on the actor's
// goroutine: MonitorAfterContractSetup,
// MonitorAfterRollover, MonitorCollaborativeSettlement, MonitorCetFinality,
// and TryBroadcastTransaction all funnel through apply.
type request struct {
	apply func()
}

// NewActor constructs a MonitorActor. Start must be called before it does
// any work.
func NewActor(cfg Config, initialTip uint32) *MonitorActor {
	return &MonitorActor{
		cfg:         cfg,
		engine:      New(initialTip),
		broadcaster: NewBroadcaster(cfg.Indexer),
		requests:    make(chan request, 64),
		quit:        make(chan struct{}),
	}
}

// Start performs the startup replay (stream every open
// contract, fold its event log, rebroadcast in commit/CET/lock order,
// register its guards) and then launches the actor's run loop. Start is
// idempotent.
func (m *MonitorActor) Start() error {
	if !atomic.CompareAndSwapUint32(&m.started, 0, 1) {
		return nil
	}

	log.Infof("Starting monitor actor")

	ctx, cancel := context.WithTimeout(context.Background(), model.IndexerClientTimeout)
	defer cancel()

	if err := m.replay(ctx); err != nil {
		return err
	}

	m.wg.Add(1)
	go m.run()

	return nil
}

// Stop signals the run loop to exit and waits for it to finish. Stop is
// idempotent.
func (m *MonitorActor) Stop() error {
	if !atomic.CompareAndSwapUint32(&m.stopped, 0, 1) {
		return nil
	}

	log.Infof("Stopping monitor actor")

	close(m.quit)
	m.wg.Wait()

	return nil
}

// replay streams every open contract, folds its full event log into a
// projection, rebroadcasts any pending commit/CET/lock transaction in that
// order, and registers the watches implied by the
// projection's guard flags. A per-contract load or fold failure is logged
// and does not abort the replay.
func (m *MonitorActor) replay(ctx context.Context) error {
	results, err := m.cfg.Store.LoadAllOpenCfds(ctx)
	if err != nil {
		return err
	}

	for result := range results {
		if result.Err != nil {
			log.Errorf("Failed to load open cfd: %v", result.Err)
			continue
		}

		cfd := cfdmodel.FromEvents(result.Cfd.Id, result.Cfd.Events)
		m.rebroadcastPending(cfd)
		m.registerWatches(cfd)
	}

	return nil
}

// rebroadcastPending resubmits any transaction the projection flags as
// pending, in commit, CET, lock order: the commit is the most likely to
// still need publishing, followed by a CET that has already been decided,
// followed by the lock as the earliest transaction in the chain. Broadcast
// failures are logged and do not abort startup.
func (m *MonitorActor) rebroadcastPending(cfd cfdmodel.Cfd) {
	if cfd.BroadcastCommit != nil {
		if err := m.broadcaster.Broadcast(cfd.BroadcastCommit, Commit); err != nil {
			log.Errorf("Failed to rebroadcast commit transaction for %v: %v", cfd.Id, err)
		}
	}
	if cfd.BroadcastCet != nil {
		if err := m.broadcaster.Broadcast(cfd.BroadcastCet, Cet); err != nil {
			log.Errorf("Failed to rebroadcast cet transaction for %v: %v", cfd.Id, err)
		}
	}
	if cfd.BroadcastLock != nil {
		if err := m.broadcaster.Broadcast(cfd.BroadcastLock, Lock); err != nil {
			log.Errorf("Failed to rebroadcast lock transaction for %v: %v", cfd.Id, err)
		}
	}
}

// registerWatches arms every guard the projection currently has enabled.
func (m *MonitorActor) registerWatches(cfd cfdmodel.Cfd) {
	if cfd.MonitorLockFinality && cfd.Lock != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Lock.Txid(), Script: cfd.Lock.Script},
			scriptstatus.Confirmed(model.LockFinalityConfirmations),
			Event{Kind: LockFinality, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorCommitFinality && cfd.Commit != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Commit.Txid(), Script: cfd.Commit.Script},
			scriptstatus.Confirmed(model.CommitFinalityConfirmations),
			Event{Kind: CommitFinality, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorCollaborativeSettlementFinality && cfd.CollaborativeSettlement != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.CollaborativeSettlement.Txid, Script: cfd.CollaborativeSettlement.Script},
			scriptstatus.Confirmed(model.CloseFinalityConfirmations),
			Event{Kind: CloseFinality, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorCetFinality && cfd.Cet != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Cet.Txid, Script: cfd.Cet.Script},
			scriptstatus.Confirmed(model.CetFinalityConfirmations),
			Event{Kind: CetFinality, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorCetTimelock && cfd.Commit != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Commit.Txid(), Script: cfd.Commit.Script},
			scriptstatus.WithConfirmations(model.CetTimelock),
			Event{Kind: CetTimelockExpired, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorRefundTimelock && cfd.Commit != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Commit.Txid(), Script: cfd.Commit.Script},
			scriptstatus.WithConfirmations(refundTimelockOf(cfd)),
			Event{Kind: RefundTimelockExpired, OrderId: cfd.Id},
		)
	}
	if cfd.MonitorRefundFinality && cfd.Refund != nil {
		m.engine.Monitor(
			model.TxLocator{Txid: cfd.Refund.Txid, Script: cfd.Refund.Script},
			scriptstatus.Confirmed(model.RefundFinalityConfirmations),
			Event{Kind: RefundFinality, OrderId: cfd.Id},
		)
	}
	for _, revoked := range cfd.MonitorRevokedCommitTransactions {
		m.engine.Monitor(
			model.TxLocator{Txid: revoked.Txid, Script: revoked.Script},
			scriptstatus.InMempoolTarget(),
			Event{Kind: RevokedTransactionFound, OrderId: cfd.Id},
		)
	}
}

func refundTimelockOf(cfd cfdmodel.Cfd) uint32 {
	if cfd.Refund != nil {
		return cfd.Refund.Timelock
	}
	return 0
}

// run is the single-threaded message loop: it performs a
// sync every model.SyncInterval, and services incoming requests in between.
// It exits once quit is closed.
func (m *MonitorActor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(model.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sync()

		case req := <-m.requests:
			req.apply()

		case <-m.quit:
			return
		}
	}
}

// sync performs one periodic tick: refresh the tip, snapshot the currently
// watched scripts, fetch their histories, update the engine, and dispatch
// any events that fired.
func (m *MonitorActor) sync() {
	start := time.Now()
	defer func() {
		metrics.SyncDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	header, err := m.cfg.Indexer.BlockHeadersSubscribe()
	if err != nil {
		log.Errorf("Failed to fetch tip for sync: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), model.IndexerClientTimeout)
	defer cancel()

	scripts := m.engine.MonitoringScripts()
	histories := FetchHistories(ctx, m.cfg.Indexer, scripts)

	fired := m.engine.Update(header.Height, histories)
	for _, event := range fired {
		m.dispatch(event)
	}
}

// dispatch converts a fired Event into a command against the external
// executor, matching the event-to-handler table. Errors are
// logged rather than treated as fatal.
func (m *MonitorActor) dispatch(event Event) {
	handler := handlerFor(event.Kind)
	if handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), model.IndexerClientTimeout)
	defer cancel()

	if err := m.cfg.Executor.Execute(ctx, event.OrderId, handler); err != nil {
		log.Errorf("Failed to execute handler for %v: %v", event, err)
	}
}

// modelEventKindFor maps a fired monitor.EventKind to the model.EventKind
// that should be appended to the contract's event log, per cfdmodel.Fold's
// own handling of these kinds: LockFinality/CommitFinality/CloseFinality/
// CetFinality/RefundFinality clear the matching monitor/rebroadcast guard,
// CetTimelockExpired and RefundTimelockExpired disable their respective
// timelock guard, and RevokedTransactionFound is recorded as the reserved
// RevokeConfirmed no-op.
func modelEventKindFor(kind EventKind) model.EventKind {
	switch kind {
	case LockFinality:
		return model.LockConfirmed
	case CommitFinality:
		return model.CommitConfirmed
	case CloseFinality:
		return model.CollaborativeSettlementConfirmed
	case CetFinality:
		return model.CetConfirmed
	case CetTimelockExpired:
		return model.CetTimelockExpiredPriorOracleAttestation
	case RefundTimelockExpired:
		return model.RefundTimelockExpired
	case RefundFinality:
		return model.RefundConfirmed
	case RevokedTransactionFound:
		return model.RevokeConfirmed
	default:
		return ""
	}
}

// handlerFor returns the command.Handler that should be invoked for a fired
// event kind: it appends the corresponding model.EventKind to the
// contract's event log. The executor fills in OrderId, so the handler only
// needs to supply Kind. The opaque aggregate parameter is unused here: the
// monitor->model event-kind mapping is deterministic and does not need to
// inspect the aggregate to decide it.
func handlerFor(kind EventKind) command.Handler {
	modelKind := modelEventKindFor(kind)
	if modelKind == "" {
		return nil
	}

	return func(cfd any) (*model.CfdEvent, error) {
		return &model.CfdEvent{Kind: modelKind}, nil
	}
}

// enqueue submits a request to be applied on the actor's goroutine. It
// blocks if the request channel is full, applying natural backpressure to
// callers.
func (m *MonitorActor) enqueue(apply func()) {
	select {
	case m.requests <- request{apply: apply}:
	case <-m.quit:
	}
}

// MonitorAfterContractSetup arms the guards implied by a freshly set-up
// contract's projection.
func (m *MonitorActor) MonitorAfterContractSetup(cfd cfdmodel.Cfd) {
	m.enqueue(func() { m.registerWatches(cfd) })
}

// MonitorAfterRollover re-arms the guards implied by a contract's projection
// after a rollover.
func (m *MonitorActor) MonitorAfterRollover(cfd cfdmodel.Cfd) {
	m.enqueue(func() { m.registerWatches(cfd) })
}

// MonitorCollaborativeSettlement arms the close-finality guard for a
// contract's collaborative settlement transaction.
func (m *MonitorActor) MonitorCollaborativeSettlement(cfd cfdmodel.Cfd) {
	m.enqueue(func() { m.registerWatches(cfd) })
}

// MonitorCetFinality arms the CET-finality guard once a CET has been
// selected and broadcast.
func (m *MonitorActor) MonitorCetFinality(cfd cfdmodel.Cfd) {
	m.enqueue(func() { m.registerWatches(cfd) })
}

// TryBroadcastTransaction requests an out-of-band (re)broadcast of tx,
// e.g. a manually published commit transaction.
func (m *MonitorActor) TryBroadcastTransaction(tx *wire.MsgTx, kind TransactionKind) {
	m.enqueue(func() {
		if err := m.broadcaster.Broadcast(tx, kind); err != nil {
			log.Errorf("Failed to broadcast transaction %v: %v", tx.TxHash(), err)
		}
	})
}
