package parallel

import "sync/atomic"

// WhenAll returns a Future that becomes Ready once every future in fs has
// become terminal, or immediately Ready if fs is empty. A shared sink
// Promise is paired with a Guard armed to resolve it, and each input
// releases one reference on that guard when it reaches any terminal
// stage. Because releasing is reference-counted rather than
// order-dependent, inputs of different result types can be mixed freely —
// each Future[T] satisfies futureLike regardless of T.
//
// WhenAll does not propagate individual failures: the returned future
// resolves successfully even if some inputs failed or were abandoned. Use
// each input's own Get to inspect its outcome.
func WhenAll(fs ...futureLike) Future[struct{}] {
	sink := NewPromise[struct{}]()
	if len(fs) == 0 {
		sink.SetValue(struct{}{})
		return sink.Future()
	}

	remaining := &refcount{n: int64(len(fs))}
	done := NewGuard(func() { sink.SetValue(struct{}{}) })
	release := func() {
		if remaining.release() {
			done.Run()
		}
	}
	for _, f := range fs {
		f.attachContinuation(release, release)
	}
	return sink.Future()
}

// WhenAny returns a Future that becomes Ready as soon as the first future
// in fs becomes terminal. With no inputs it never becomes Ready: nothing
// runs the guard, so the sink promise is left to NewPromise's finalizer,
// which abandons it once it is garbage collected. The Guard
// itself provides the "first one wins" semantics: every input races to
// Run it, and only the first succeeds.
func WhenAny(fs ...futureLike) Future[struct{}] {
	sink := NewPromise[struct{}]()
	guard := NewGuard(func() { sink.SetValue(struct{}{}) })
	for _, f := range fs {
		f.attachContinuation(guard.Run, guard.Run)
	}
	return sink.Future()
}

// WhenAllOf is WhenAll specialized to a single result type, for callers
// (such as package kernel) that already have a homogeneous []Future[T] and
// would otherwise need to repack it into individual arguments.
func WhenAllOf[T any](fs []Future[T]) Future[struct{}] {
	args := make([]futureLike, len(fs))
	for i, f := range fs {
		args[i] = f
	}
	return WhenAll(args...)
}

// And is WhenAll for exactly two futures of possibly different types.
func And[T1, T2 any](a Future[T1], b Future[T2]) Future[struct{}] {
	return WhenAll(a, b)
}

// Or is WhenAny for exactly two futures of possibly different types.
func Or[T1, T2 any](a Future[T1], b Future[T2]) Future[struct{}] {
	return WhenAny(a, b)
}

// refcount is an atomic countdown used only by WhenAll above.
type refcount struct {
	n int64
}

func (r *refcount) release() bool {
	return atomic.AddInt64(&r.n, -1) == 0
}
