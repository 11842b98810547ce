/*package thread contains functions useful for multi-threading.*/
package thread

import (
	"runtime"
	"sync"
)

var workers = runtime.NumCPU()

// Set sets the number of worker goroutines used by Split and the number of
// OS threads they run on. n = -1 uses every core on the node. Set returns
// the number of workers actually chosen so callers can report it.
func Set(n int) int {
	if n == -1 || n > runtime.NumCPU() {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}

	workers = n
	runtime.GOMAXPROCS(n)
	return n
}

// Workers returns the current worker count.
func Workers() int { return workers }

// Split runs work on contiguous index chunks covering [0, n), one chunk per
// worker, and blocks until every chunk is done. The chunks are disjoint, so
// work bodies that only write to their own indices need no locking.
func Split(n int, work func(lo, hi int)) {
	w := workers
	if w > n {
		w = n
	}
	if w <= 1 {
		if n > 0 {
			work(0, n)
		}
		return
	}

	wg := &sync.WaitGroup{}
	wg.Add(w)
	for j := 0; j < w; j++ {
		lo, hi := n*j/w, n*(j+1)/w
		go func(lo, hi int) {
			defer wg.Done()
			work(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
