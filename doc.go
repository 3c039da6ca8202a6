// Package parallel provides a future/promise pair with continuations, a
// dependency-aware thread pool built on top of it, and a data-parallel
// kernel executor built on top of the pool.
//
// Futures and promises
//
// A Promise[T] is the producer-side handle to an asynchronous result; its
// Future[T] is the consumer-side view. Then registers a continuation that
// runs once the future is Ready or Failed — immediately, on the calling
// goroutine, if it already is; if the promise is abandoned instead, the
// continuation never runs and the chained future is abandoned too. WhenAll and
// WhenAny compose multiple futures of possibly different result types into
// a single void Future.
//
// Thread pool
//
// Pool owns a fixed number of worker goroutines. Submit enqueues a thunk,
// optionally fused to one or more dependency futures via WhenAll, and
// returns a Future for its result. Workers scan the work set for the first
// ready task, run it, and wake a bounded number of peers in proportion to
// how many downstream continuations just became runnable.
//
// Subpackages
//
// Package kernel shards an N-dimensional index space across a Pool.
// Package ipc hosts the cross-process primitives: named shared memory, a
// fixed-capacity ring buffer over caller-supplied memory, a robust mutex
// that survives owner-process death, and a paired condition variable.
package parallel
