// Package parallel provides a small bounded worker pool for fanning
// out independent work items.
package parallel

import (
	"runtime"
	"sync"
)

type Pool struct {
	wg   sync.WaitGroup
	work chan func()
	done sync.Once
}

// Start launches a pool of numWorkers goroutines. Any value below one
// means one worker per available CPU. A single-worker pool runs work
// inline on the submitting goroutine.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{}
	if numWorkers > 1 {
		pool.work = make(chan func(), numWorkers)
		for i := 0; i < numWorkers; i++ {
			pool.wg.Add(1)
			go func() {
				defer pool.wg.Done()
				for f := range pool.work {
					f()
				}
			}()
		}
	}
	return pool
}

// Do schedules f on a worker, blocking while all workers are busy and
// the submission queue is full.
func (p *Pool) Do(f func()) {
	if p.work == nil {
		f()
		return
	}
	p.work <- f
}

// Wait stops accepting work and blocks until everything already
// submitted has finished. Do must not be called after Wait.
func (p *Pool) Wait() {
	if p.work == nil {
		return
	}
	p.done.Do(func() { close(p.work) })
	p.wg.Wait()
}
