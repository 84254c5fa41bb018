// Package async provides a minimal promise for fetches that are launched
// once and awaited by several dependent rewrites.
package async

import "context"

// Result holds either a value or an error from an asynchronous operation.
type Result[T any] struct {
	Value T
	Err   error
}

// Promise is a single-assignment container resolved by a background
// fetch. Awaiting is idempotent and safe from multiple goroutines, which
// is what lets several pending rewrites share one duration fetch.
type Promise[T any] struct {
	done chan struct{}
	res  Result[T]
}

// Go launches fn in a goroutine and returns a promise for its outcome.
func Go[T any](fn func() (T, error)) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	go func() {
		p.res.Value, p.res.Err = fn()
		close(p.done)
	}()
	return p
}

// Resolved returns an already-settled promise. Handy in tests and for
// values known at registration time.
func Resolved[T any](value T, err error) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	p.res = Result[T]{Value: value, Err: err}
	close(p.done)
	return p
}

// Await blocks until the promise settles or the context is cancelled.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.res.Value, p.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
