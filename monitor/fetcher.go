package monitor

import (
	"context"
	"time"

	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/model"
	"golang.org/x/sync/errgroup"
)

// FetchHistories is the BatchedHistoryFetcher. Given N
// scripts, it returns at most N (script, history) pairs within bounded
// wall time.
//
// Scripts are split into chunks of model.BatchSize; each chunk is worked
// sequentially by its own goroutine against client. Responses are shipped
// through a channel buffered to hold model.BatchSize*4 entries, matching
// the batched-history-fetch pattern used elsewhere in the ecosystem. Because chunks run concurrently,
// responses can arrive in any order relative to the input; each result is
// tagged with its script rather than relying on positional alignment.
//
// Once an individual response takes longer than
// model.ScriptGetHistoryResponseTimeout to arrive, the collector stops and
// returns what it has so far (a partial sync, logged as such). Per-script
// indexer errors are logged and simply produce no result for that script;
// the overall fetch still completes. If the caller's context is cancelled,
// the collector returns at once and each worker stops at its next send,
// leaving the rest of its chunk unqueried; the next sync re-queries
// regardless.
func FetchHistories(ctx context.Context, client indexer.Client, scripts []model.Script) []ScriptHistory {
	results := make(chan ScriptHistory, model.BatchSize*4)

	var chunks [][]model.Script
	for start := 0; start < len(scripts); start += model.BatchSize {
		end := start + model.BatchSize
		if end > len(scripts) {
			end = len(scripts)
		}
		chunks = append(chunks, scripts[start:end])
	}

	go func() {
		g, gctx := errgroup.WithContext(ctx)

		for _, chunk := range chunks {
			chunk := chunk
			g.Go(func() error {
				for _, script := range chunk {
					history, err := client.ScriptGetHistory(script)
					if err != nil {
						log.Errorf("Error when fetching script history for %v: %v", script, err)
						continue
					}

					select {
					case results <- ScriptHistory{Script: script, History: history}:
					case <-gctx.Done():
						return nil
					}
				}
				return nil
			})
		}

		// Per-script errors are already absorbed above; no chunk worker
		// returns a non-nil error, so Wait only ever blocks for
		// completion.
		_ = g.Wait()
		close(results)
	}()

	histories := make([]ScriptHistory, 0, len(scripts))

collectLoop:
	for {
		select {
		case res, ok := <-results:
			if !ok {
				break collectLoop
			}
			histories = append(histories, res)

		case <-time.After(model.ScriptGetHistoryResponseTimeout):
			log.Warnf("Not all responses received within %v: got %d/%d, returning partial sync",
				model.ScriptGetHistoryResponseTimeout, len(histories), len(scripts))
			break collectLoop

		case <-ctx.Done():
			log.Warnf("History fetch cancelled: got %d/%d", len(histories), len(scripts))
			break collectLoop
		}
	}

	return histories
}
