package fluid

import (
	"runtime"
	"sync"
)

//Executor runs fn over [0, n) split into contiguous ranges and returns once
//every range is done. Implementations must not call fn with overlapping ranges
type Executor interface {
	ParallelFor(n int, fn func(begin, end int))
}

//SerialExecutor runs every pass on the calling goroutine
type SerialExecutor struct{}

func (SerialExecutor) ParallelFor(n int, fn func(begin, end int)) {
	if n > 0 {
		fn(0, n)
	}
}

//GoroutineExecutor chunks a pass across Workers goroutines with a WaitGroup
//barrier at the end
type GoroutineExecutor struct {
	Workers  int
	MinChunk int //Ranges smaller than this run inline
}

const defaultMinChunk = 256

//NewGoroutineExecutor - workers <= 0 uses one worker per CPU
func NewGoroutineExecutor(workers int) *GoroutineExecutor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &GoroutineExecutor{Workers: workers, MinChunk: defaultMinChunk}
}

func (e *GoroutineExecutor) ParallelFor(n int, fn func(begin, end int)) {
	if n <= 0 {
		return
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := (n + workers - 1) / workers
	if chunk < e.MinChunk {
		chunk = e.MinChunk
	}
	if chunk >= n {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for begin := 0; begin < n; begin += chunk {
		end := begin + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(b, e int) {
			defer wg.Done()
			fn(b, e)
		}(begin, end)
	}
	wg.Wait()
}
