package physics

import "sync"

// parallelFor splits [0, n) into at most workers contiguous chunks and runs fn on each chunk in its
// own goroutine, returning once every chunk is done. Chunks never overlap, so fn may write to any
// index inside its own range without synchronisation.
func parallelFor(n, workers int, fn func(start, end int)) {
	if n == 0 {
		return
	}
	if workers <= 1 || n < workers*minChunk {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

// minChunk is the smallest amount of work worth handing to a goroutine.
const minChunk = 256
