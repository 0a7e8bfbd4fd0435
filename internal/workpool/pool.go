// Package workpool provides a long-lived pool of worker goroutines shared by
// the parallel stages of the synthesis pipeline.
//
// Work is expressed as an index-based map: each task computes one result and
// hands it back to the caller, which performs any reduction after the join.
// Workers never touch shared accumulators.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is submitted to a closed pool
var ErrClosed = errors.New("worker pool is closed")

// ErrWorkerPanic wraps a panic raised inside a task
var ErrWorkerPanic = errors.New("worker panicked")

// Pool is a fixed set of goroutines fed through a dispatch channel
type Pool struct {
	size   int
	tasks  chan func()
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once
}

// DefaultSize returns max(1, NumCPU-1), leaving one core to the coordinator
func DefaultSize() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// New starts a pool with the given number of workers.
// A size below 1 selects DefaultSize.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize()
	}
	p := &Pool{
		size:  size,
		tasks: make(chan func(), size*2),
	}
	p.wg.Add(size)
	for w := 0; w < size; w++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Size returns the number of workers
func (p *Pool) Size() int {
	if p == nil {
		return 1
	}
	return p.size
}

// Close stops the workers after queued tasks drain. It is safe to call more than once.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.tasks)
		p.wg.Wait()
	})
}

// Map evaluates fn for every index in [0, n) and returns the results in
// index order. Map blocks until all tasks have finished; that join is the
// only point where cancellation is observed, so a cancelled context never
// interrupts a running task but does discard the results.
//
// A nil pool runs every task sequentially on the calling goroutine.
// Map must not be called from inside a task of the same pool.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(i int) (T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []T{}, nil
	}

	results := make([]T, n)
	errs := make([]error, n)

	if p == nil {
		for i := 0; i < n; i++ {
			results[i], errs[i] = call(fn, i)
		}
	} else {
		if p.closed.Load() {
			return nil, ErrClosed
		}
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			idx := i
			p.tasks <- func() {
				defer wg.Done()
				results[idx], errs[idx] = call(fn, idx)
			}
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}
	return results, nil
}

// call runs one task, turning a panic into an error
func call[T any](fn func(int) (T, error), i int) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return fn(i)
}
