package dipole

import (
	"runtime"
	"sync"
)

// Workers resolves a requested worker count. Zero or negative means one
// worker per available CPU.
func Workers(requested int) int {
	if requested <= 0 {
		return runtime.NumCPU()
	}
	return requested
}

// parallelRange splits [0, n) into contiguous chunks, one per worker, and
// runs fn on each chunk in its own goroutine. Chunks never overlap so fn may
// write to its own slice of an output array without locking. The first
// non-nil error returned by a worker (in chunk order) is returned.
func parallelRange(n, workers int, fn func(start, end int) error) error {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return fn(0, n)
	}

	perWorker := (n + workers - 1) / workers
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= n {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = fn(start, end)
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
