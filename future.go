package parallel

import (
	"fmt"
	"runtime"
	"time"
)

// futureLike is the type-erased view WhenAll and WhenAny compose over.
// Every Future[T], regardless of T, implements it: the method signature
// below does not mention T, so the method set is identical across
// instantiations.
type futureLike interface {
	attachContinuation(run, drop func())
}

// Future is the consumer-side view of an asynchronous result of type T.
// The zero value is invalid; obtain one from a Promise[T], from Submit, or
// from a combinator.
type Future[T any] struct {
	state *sharedState[T]
}

// Valid reports whether f refers to shared state at all.
func (f Future[T]) Valid() bool { return f.state != nil }

// IsTerminal reports whether the future has resolved, one way or another.
func (f Future[T]) IsTerminal() (bool, error) {
	if f.state == nil {
		return false, ErrUninitialized
	}
	return f.state.isTerminal(), nil
}

// Wait blocks until the future resolves.
func (f Future[T]) Wait() error {
	if f.state == nil {
		return ErrUninitialized
	}
	f.state.wait()
	return nil
}

// WaitBounded blocks until the future resolves or d elapses, reporting
// which happened first.
func (f Future[T]) WaitBounded(d time.Duration) (bool, error) {
	if f.state == nil {
		return false, ErrUninitialized
	}
	return f.state.waitBounded(d), nil
}

// Get blocks until the future resolves, then returns its value. A Failed
// or Abandoned future yields its error here instead of a value.
func (f Future[T]) Get() (T, error) {
	if f.state == nil {
		var zero T
		return zero, ErrUninitialized
	}
	return f.state.get()
}

// NumberOfContinuations reports how many continuations are currently
// attached and still pending delivery.
func (f Future[T]) NumberOfContinuations() (int, error) {
	if f.state == nil {
		return 0, ErrUninitialized
	}
	return f.state.numberOfContinuations(), nil
}

func (f Future[T]) attachContinuation(run, drop func()) {
	if f.state == nil {
		run()
		return
	}
	f.state.attachContinuation(run, drop)
}

// Promise is the producer-side handle to an asynchronous result of type T.
// Unlike Future, a Promise is meant to have a single owner: whichever
// goroutine computes the result calls SetValue or SetFailure on it exactly
// once.
type Promise[T any] struct {
	state *sharedState[T]
}

// NewPromise creates a Promise with fresh, Pending shared state. If the
// promise is garbage collected while still Pending without an explicit
// Abandon, a finalizer resolves its Future to ErrBrokenPromise, so a
// consumer is never left waiting on a producer that no longer exists.
// Code with a deterministic end-of-life (the thread pool, in particular)
// calls Abandon directly instead of relying on this.
func NewPromise[T any]() *Promise[T] {
	p := &Promise[T]{state: newSharedState[T]()}
	runtime.SetFinalizer(p, func(p *Promise[T]) {
		p.state.resolve(stageAbandoned, *new(T), ErrBrokenPromise)
	})
	return p
}

// Future returns the consumer-side view of p's result.
func (p *Promise[T]) Future() Future[T] {
	return Future[T]{state: p.state}
}

// SetValue resolves the promise successfully. It returns ErrAlreadySatisfied
// if the promise had already left the Pending stage.
func (p *Promise[T]) SetValue(v T) error {
	return p.state.setValue(v)
}

// SetFailure resolves the promise with an error. It returns
// ErrAlreadySatisfied if the promise had already left the Pending stage.
func (p *Promise[T]) SetFailure(err error) error {
	return p.state.setFailure(err)
}

// Abandon resolves the promise to ErrBrokenPromise if it is still Pending,
// and is a no-op otherwise. It is idempotent and safe to call more than
// once.
func (p *Promise[T]) Abandon() {
	p.state.markAbandoned()
}

// NumberOfContinuations reports how many continuations are currently
// attached to the promise's shared state and still pending delivery.
func (p *Promise[T]) NumberOfContinuations() int {
	return p.state.numberOfContinuations()
}

// Then attaches a continuation to f and returns a new Future for the
// continuation's result. fn runs once f resolves — immediately, on the
// calling goroutine, if it already has. If f is abandoned instead, fn
// never runs and the returned future is abandoned too, so the whole chain
// surfaces ErrBrokenPromise. A panic inside fn is recovered and turned
// into the returned future's failure, the same protection Task gives
// thunks run on the thread pool.
//
// This is a free function, not a method on Future[T], because Go does not
// allow a method to introduce a type parameter beyond its receiver's.
func Then[T, R any](f Future[T], fn func(Future[T]) (R, error)) Future[R] {
	p := NewPromise[R]()
	if f.state == nil {
		p.SetFailure(ErrUninitialized)
		return p.Future()
	}
	f.attachContinuation(func() {
		defer func() {
			if r := recover(); r != nil {
				p.SetFailure(toError(r))
			}
		}()
		result, err := fn(f)
		if err != nil {
			p.SetFailure(err)
			return
		}
		p.SetValue(result)
	}, p.Abandon)
	return p.Future()
}

func toError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicValue{v: r}
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return fmt.Sprintf("panic: %v", p.v) }
