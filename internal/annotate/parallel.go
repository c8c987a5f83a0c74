package annotate

import (
	"runtime"
	"sync"

	"github.com/inodb/sgrna-check/internal/alignment"
)

// workItem holds one chromosome's records ready for resolution.
type workItem struct {
	Seq   int
	group chromGroup
}

// workResult holds the resolution output for a single chromosome.
type workResult struct {
	Seq    int
	result groupResult
}

// ResolveParallel resolves records like Resolve, spreading chromosomes
// over a pool of workers. Output is identical to Resolve.
// If workers is 0, runtime.NumCPU() is used.
func (a *Annotator) ResolveParallel(records []alignment.Record, workers int) (*Resolution, error) {
	groups := groupByChrom(records)

	items := make(chan workItem, len(groups))
	for i, g := range groups {
		items <- workItem{Seq: i, group: g}
	}
	close(items)

	results := make([]groupResult, 0, len(groups))
	if err := orderedCollect(a.parallelResolve(items, workers), func(r workResult) error {
		results = append(results, r.result)
		return nil
	}); err != nil {
		return nil, err
	}

	return a.merge(len(records), results)
}

// parallelResolve resolves work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
func (a *Annotator) parallelResolve(items <-chan workItem, workers int) <-chan workResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan workResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- workResult{
					Seq:    item.Seq,
					result: a.resolveGroup(item.group),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func orderedCollect(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
