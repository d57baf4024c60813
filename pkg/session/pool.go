package session

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded set of workers for blocking remote calls.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool running at most workers calls at once.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Future is the pending result of a submitted call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit runs fn on a pool worker. fn receives ctx and should return
// promptly once it is done.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(f.done)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer p.sem.Release(1)

		f.value, f.err = fn(ctx)
	}()
	return f
}

// Await waits for the result or for ctx to end, whichever comes first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the call has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until every submitted call has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
