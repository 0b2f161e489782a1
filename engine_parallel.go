package gqlsearch

import (
	"context"
	"runtime"
	"sync"
)

// SearchFilesParallel searches files using a three-phase pipeline:
//
//	Phase A (serial):   Cache lookup, stale-entry cleanup, file records.
//	Phase B (parallel): Read, extract, parse and match via worker pool.
//	Phase C (serial):   Commit batches to SQLite, report progress.
//
// Matches and diagnostics are reported in input order regardless of which
// worker finishes first.
func (e *Engine) SearchFilesParallel(ctx context.Context, paths []string) (*Report, error) {
	outcomes := make([]fileOutcome, len(paths))
	done := 0

	// ---- Phase A: Serial preparation ----
	var items []workItem
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return e.buildReport(outcomes), err
		}
		item, cached, ok := e.prepareFile(i, path)
		if ok {
			outcomes[i] = cached
			done++
			e.reportProgress(done, len(paths))
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return e.buildReport(outcomes), nil
	}

	// ---- Phase B: Parallel search ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(items)))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item    workItem
		outcome fileOutcome
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker writes only to its item's Batch.
			for item := range workCh {
				if ctx.Err() != nil {
					return
				}
				resultCh <- result{item: item, outcome: e.searchItem(ctx, item)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if !res.outcome.done {
			continue
		}
		e.commit(res.item)
		outcomes[res.item.index] = res.outcome
		done++
		e.reportProgress(done, len(paths))
	}

	return e.buildReport(outcomes), ctx.Err()
}
