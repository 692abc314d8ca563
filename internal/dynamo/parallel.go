package dynamo

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest partition worth handing to a separate goroutine.
const minChunk = 64

// Pool runs the partitions of one step on a fixed number of workers.
type Pool struct {
	workers int
}

// NewPool returns a pool with n workers. n == 0 selects runtime.NumCPU().
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{workers: n}
}

// Workers returns the number of workers; callers size per-worker scratch
// buffers with it.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// Run splits [0, n) into contiguous partitions and calls fn once per
// partition, passing the worker index. It returns after all partitions
// finish (a full barrier), with the first error encountered.
func (p *Pool) Run(n int, fn func(worker, start, end int) error) error {
	workers := p.Workers()
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers <= 1 {
		return fn(0, 0, n)
	}

	chunkSize := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		worker := w
		g.Go(func() error {
			return fn(worker, start, end)
		})
	}
	return g.Wait()
}

// For is Run for work that cannot fail.
func (p *Pool) For(n int, fn func(start, end int)) {
	_ = p.Run(n, func(_, start, end int) error {
		fn(start, end)
		return nil
	})
}
