package sql

import (
	"context"

	"github.com/syssam/polystore/dialect"
)

// Future is the pending result of an asynchronous execution.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in its own goroutine and returns its future result. The
// context is passed to fn, so cancelling it cancels the execution.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ExecAsync runs Exec asynchronously.
func ExecAsync(ctx context.Context, ex dialect.ExecQuerier, st *Statement) *Future[Result] {
	return Go(ctx, func(ctx context.Context) (Result, error) {
		return Exec(ctx, ex, st)
	})
}

// QueryAsync runs Query asynchronously. The caller closes the rows.
func QueryAsync(ctx context.Context, ex dialect.ExecQuerier, st *Statement) *Future[*Rows] {
	return Go(ctx, func(ctx context.Context) (*Rows, error) {
		return QueryStatement(ctx, ex, st)
	})
}
