package kernel

import (
	"context"
	"fmt"
	"sync"
)

//
// =======================================================
// 0. ASYNC CORE: Future[T]
// =======================================================
//

// FutureState is the settlement state of a Future.
type FutureState int32

const (
	Pending FutureState = iota
	Completed
	Failed
	Cancelled
)

func (s FutureState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("FutureState(%d)", int32(s))
}

// Future[T] is a write-once, read-many completion cell.
// The first Complete/Fail/Cancel wins; later attempts are ignored.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	state     FutureState
	value     T
	err       error
	callbacks []func(T, error)
}

// NewFuture creates a pending Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete settles the future with a value.
func (f *Future[T]) Complete(value T) bool {
	return f.settle(Completed, value, nil)
}

// Fail settles the future with an error. A nil error is replaced by ErrExecution.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = ErrExecution
	}
	var zero T
	return f.settle(Failed, zero, err)
}

// Cancel settles a pending future as cancelled.
func (f *Future[T]) Cancel() bool {
	var zero T
	return f.settle(Cancelled, zero, ErrCancelled)
}

// Settle completes with value when err is nil, otherwise fails with err.
func (f *Future[T]) Settle(value T, err error) bool {
	if err != nil {
		return f.Fail(err)
	}
	return f.Complete(value)
}

func (f *Future[T]) settle(state FutureState, value T, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state = state
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

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Await blocks until the future settles.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitContext blocks until the future settles or ctx is done.
// Giving up on the wait leaves the future untouched.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	// a settled result wins over a context that is also done
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run once the future settles.
// If it already settled, fn runs immediately on the calling goroutine.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if f.state == Pending {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}

// Then maps a successful result; errors pass through untouched.
func (f *Future[T]) Then(fn func(T) (any, error)) *Future[any] {
	next := NewFuture[any]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			next.Fail(err)
			return
		}
		next.Settle(fn(v))
	})
	return next
}

// Catch gives fn a chance to recover from a failure.
func (f *Future[T]) Catch(fn func(error) (T, error)) *Future[T] {
	next := NewFuture[T]()
	f.OnComplete(func(v T, err error) {
		if err == nil {
			next.Complete(v)
			return
		}
		next.Settle(fn(err))
	})
	return next
}

// CompletedFuture wraps a synchronous result in a settled future.
func CompletedFuture[T any](value T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Settle(value, err)
	return f
}

// FailedFuture returns a future already failed with err.
func FailedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Fail(err)
	return f
}

// RunAsync runs fn on a new goroutine and returns its future.
func RunAsync[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Fail(fmt.Errorf("%w: panic: %v", ErrExecution, r))
			}
		}()
		f.Settle(fn())
	}()
	return f
}
