// Package monitor implements the chain monitor core: the
// ConfirmationEngine that decides which watches have fired,
// the BatchedHistoryFetcher that feeds it, the Broadcaster,
// and the MonitorActor that wires them together.
package monitor

import (
	"sync"

	"github.com/itchysats/cfdmonitor/model"
	"github.com/itchysats/cfdmonitor/scriptstatus"
)

// Watch is a registered request to be told, via Fires, once the locator
// reaches the confirmation status Target.
type Watch struct {
	Locator model.TxLocator
	Target  scriptstatus.ScriptStatus
	Fires   Event
}

// watchEntry tracks the emission state of one registered Watch.
type watchEntry struct {
	watch   Watch
	emitted bool
}

// Engine is the ConfirmationEngine: given a current tip
// height and fresh script histories, it decides which watches have fired.
//
// Every method takes the Engine's mutex, so it may be called from any
// goroutine; in normal operation it is owned by a single MonitorActor and
// driven from that actor's goroutine.
type Engine struct {
	mu sync.Mutex

	tip uint32

	// allWatches preserves global registration order, which is also the
	// order ties are broken in when multiple watches fire in the same
	// Update call.
	allWatches []*watchEntry

	// registered dedupes (locator, target, fires) triples so that
	// Monitor is idempotent.
	registered map[string]struct{}

	// scriptOrder is the deduplicated, first-seen-order list of scripts
	// being watched. MonitoringScripts returns this slice; the engine
	// documents (rather than hides) that monitoring_scripts may
	// duplicate scripts across watches, and chooses here
	// to expose a deduplicated view instead.
	scriptOrder []model.Script
	scriptIndex map[string]int

	// watchesByScript groups watch entries sharing a script, so that a
	// single history response can be applied to all of them.
	watchesByScript map[string][]*watchEntry

	// lastObserved is the best status last derived for a given locator.
	// It is intentionally overwritten (not maxed) on every tick in which
	// a history response for the locator's script was present, matching
	// only a genuinely missing (timed-out) response
	// leaves it unchanged.
	lastObserved map[string]scriptstatus.ScriptStatus
}

// New constructs a ConfirmationEngine with the given starting tip height.
func New(initialTip uint32) *Engine {
	return &Engine{
		tip:             initialTip,
		registered:      make(map[string]struct{}),
		scriptIndex:     make(map[string]int),
		watchesByScript: make(map[string][]*watchEntry),
		lastObserved:    make(map[string]scriptstatus.ScriptStatus),
	}
}

func locatorKey(loc model.TxLocator) string {
	return loc.Txid.String() + "|" + loc.Script.ScriptKey()
}

func watchKey(w Watch) string {
	return locatorKey(w.Locator) + "|" + w.Target.String() + "|" + string(w.Fires.Kind) + "|" + w.Fires.OrderId.String()
}

// Monitor registers a new watch. Registering the same (locator, target,
// fires) triple more than once is a no-op.
func (e *Engine) Monitor(loc model.TxLocator, target scriptstatus.ScriptStatus, fires Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := Watch{Locator: loc, Target: target, Fires: fires}
	key := watchKey(w)
	if _, ok := e.registered[key]; ok {
		return
	}
	e.registered[key] = struct{}{}

	entry := &watchEntry{watch: w}
	e.allWatches = append(e.allWatches, entry)

	scriptKey := loc.Script.ScriptKey()
	if _, ok := e.scriptIndex[scriptKey]; !ok {
		e.scriptIndex[scriptKey] = len(e.scriptOrder)
		e.scriptOrder = append(e.scriptOrder, loc.Script)
	}
	e.watchesByScript[scriptKey] = append(e.watchesByScript[scriptKey], entry)

	log.Debugf("Registered watch for %v, target %v, fires %v", loc, target, fires)
}

// NumMonitoring returns the number of registered watches, including those
// that have already fired.
func (e *Engine) NumMonitoring() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.allWatches)
}

// MonitoringScripts returns the deduplicated set of scripts currently being
// watched, in first-registration order. The histories passed to Update
// need not follow this order: each ScriptHistory names its own script.
func (e *Engine) MonitoringScripts() []model.Script {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Script, len(e.scriptOrder))
	copy(out, e.scriptOrder)
	return out
}

// ScriptHistory pairs a script with the history the indexer returned for
// it. BatchedHistoryFetcher returns a slice of these rather than a
// positional array aligned to MonitoringScripts: its workers run
// concurrently across chunks and a response can arrive for any script at
// any time, so results are tagged with their script instead of relying on
// arrival order lining up with query order.
type ScriptHistory struct {
	Script  model.Script
	History []model.TxStatus
}

// Update is the core transition. histories is the batched
// response from BatchedHistoryFetcher for (a subset of) the scripts
// returned by the most recent MonitoringScripts call. A script with no
// entry in histories (e.g. its fetch timed out, or the indexer errored for
// it) is treated as "no information": the last-observed status of watches
// on that script is left unchanged this tick.
//
// Update returns the events that fired during this call, in the order
// their watches were registered.
func (e *Engine) Update(newTip uint32, histories []ScriptHistory) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tip = newTip

	for _, sh := range histories {
		scriptKey := sh.Script.ScriptKey()
		for _, entry := range e.watchesByScript[scriptKey] {
			observed := scriptstatus.Unknown
			for _, txStatus := range sh.History {
				if txStatus.Txid == entry.watch.Locator.Txid {
					observed = scriptstatus.FromTxStatus(txStatus, newTip)
					break
				}
			}
			e.lastObserved[locatorKey(entry.watch.Locator)] = observed
		}
	}

	var fired []Event
	for _, entry := range e.allWatches {
		if entry.emitted {
			continue
		}

		observed := e.lastObserved[locatorKey(entry.watch.Locator)]
		if observed.AtLeast(entry.watch.Target) {
			entry.emitted = true
			fired = append(fired, entry.watch.Fires)

			log.Infof("Watch fired: %v (observed %v, target %v)",
				entry.watch.Fires, observed, entry.watch.Target)
		}
	}

	return fired
}
