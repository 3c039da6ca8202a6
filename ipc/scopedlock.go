package ipc

import (
	"github.com/ygrebnov/parallel"
)

// Locker is the {lock, try_lock, unlock} shape shared by RobustMutex and
// anything else that wants to compose with UniqueLock or a parallel.Guard.
// All three operations report contract violations (recursive lock, unlock
// by non-owner) and OS failures as errors instead of succeeding silently.
type Locker interface {
	Lock() error
	TryLock() (bool, error)
	Unlock() error
}

// UniqueLock is a scoped-lock helper over a Locker: Acquire locks and
// Release unlocks. The unlock is held in a parallel.Guard, so it follows
// the same run-once discipline every other deferred action in this module
// uses. The zero value is invalid; obtain one from
// Acquire.
type UniqueLock struct {
	m     Locker
	guard *parallel.Guard
}

// Acquire blocks until m is locked and returns a UniqueLock holding it.
func Acquire(m Locker) (*UniqueLock, error) {
	if err := m.Lock(); err != nil {
		return nil, err
	}
	l := &UniqueLock{m: m}
	l.guard = parallel.NewGuard(func() { _ = m.Unlock() })
	return l, nil
}

// TryAcquire is Acquire's non-blocking variant; a nil UniqueLock with a
// nil error means the lock was contended.
func TryAcquire(m Locker) (*UniqueLock, error) {
	ok, err := m.TryLock()
	if err != nil || !ok {
		return nil, err
	}
	l := &UniqueLock{m: m}
	l.guard = parallel.NewGuard(func() { _ = m.Unlock() })
	return l, nil
}

// Release unlocks the underlying Locker. Calling it more than once is
// safe; only the first call unlocks.
func (l *UniqueLock) Release() {
	l.guard.Run()
}

// Mutex returns the underlying Locker, for callers that need to release
// and re-take it around a wait.
func (l *UniqueLock) Mutex() Locker { return l.m }

// WithLock runs fn while holding m. The unlock happens on every exit path,
// including a panic inside fn.
func WithLock(m Locker, fn func() error) error {
	l, err := Acquire(m)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
