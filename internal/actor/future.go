// Package actor provides the small concurrency primitives the service container
// is built on: single-assignment futures, unbounded FIFO mailboxes, and a
// fixed-size worker pool for asynchronous service work.
package actor

import (
	"context"
	"errors"
	"sync"
)

// ErrNotCompleted is returned by Result while a future is still pending.
var ErrNotCompleted = errors.New("future not completed")

// Future is a single-assignment result that may be completed with a value or
// failed with an error exactly once. Waiters observe completion through Done.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	err       error
	callbacks []func(T, error)
}

// NewFuture creates a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// CompletedFuture returns a future already completed with value.
func CompletedFuture[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Complete(value)
	return f
}

// FailedFuture returns a future already failed with err.
func FailedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with value. It reports false if the future was
// already completed or failed.
func (f *Future[T]) Complete(value T) bool {
	return f.finish(value, nil)
}

// Fail resolves the future with err. A nil err is treated as a failure with
// ErrNotCompleted so that a failed future always carries a cause.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = ErrNotCompleted
	}
	var zero T
	return f.finish(zero, err)
}

func (f *Future[T]) finish(value T, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	return true
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has been resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the failure cause, or nil if the future is pending or succeeded.
func (f *Future[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Result returns the resolved value and error without blocking.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.completed {
		var zero T
		return zero, ErrNotCompleted
	}
	return f.value, f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run once the future resolves. If the future is
// already resolved fn runs immediately on the calling goroutine; otherwise it
// runs on the goroutine that resolves the future.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}
