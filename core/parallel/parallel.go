// Package parallel splits flat index ranges across CPU cores. The ensemble
// models use it to fit trees and score rows concurrently.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize partitions [0, items) into one contiguous chunk per available
// core and runs fn(start, end) on each chunk in its own goroutine, waiting
// for all of them. fn must be safe to call concurrently on disjoint ranges.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last chunk absorbs the remainder.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items is at or below threshold, where goroutine overhead would dominate,
// and falls back to Parallelize above it.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
