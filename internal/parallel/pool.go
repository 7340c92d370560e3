// Package parallel runs independent jobs on a fixed number of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

type (
	// WorkerFunc schedules a job. It may block until a worker is free.
	WorkerFunc func(func())
	// WaitFunc blocks until scheduled jobs finish. Passing done=true also
	// closes the pool, after which WorkerFunc must not be called.
	WaitFunc func(done bool)
	// CancelFunc closes the pool without waiting.
	CancelFunc func()
)

// Pool is a fixed-size worker pool.
//
// With a single worker the pool runs jobs inline on the caller's goroutine.
type Pool struct {
	wg     sync.WaitGroup
	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start launches numWorkers goroutines. Values below 1 select GOMAXPROCS.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers > 1 {
		workChan := make(chan func(), numWorkers)

		pool.wg.Add(numWorkers)
		for range numWorkers {
			go func() {
				defer pool.wg.Done()
				for f := range workChan {
					f()
				}
			}()
		}

		pool.Do = func(f func()) {
			workChan <- f
		}

		pool.Wait = func(done bool) {
			if done {
				pool.Cancel()
			}
			pool.wg.Wait()
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}
