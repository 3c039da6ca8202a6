package ipc

import "github.com/ygrebnov/parallel"

// robustMutexImpl is the per-OS realization behind RobustMutex. Exactly
// one of robustmutex_linux.go (a robust process-shared pthread mutex in
// shared memory), robustmutex_darwin.go (an intra-process
// deadlock-checking mutex layered under a filesystem advisory lock) and
// robustmutex_windows.go (a named kernel mutex with abandoned-wait
// semantics) provides newRobustMutexImpl.
type robustMutexImpl interface {
	lock() error
	tryLock() (bool, error)
	unlock() error
	close()
}

// RobustMutex is a cross-process, cross-thread mutex whose ownership is
// recoverable after the holding process dies: a surviving process's Lock
// eventually succeeds instead of hanging on the dead owner. Create one per
// cooperating process — the owner first, non-owners after — all under the
// same name.
//
// Recursive locking from the same goroutine fails with
// parallel.ErrRecursiveLock; Unlock from a goroutine that does not hold
// the mutex fails with parallel.ErrNotOwner.
type RobustMutex struct {
	name string
	impl robustMutexImpl
}

// CreateRobustMutex creates the named mutex as its owner: underlying OS
// resources (shared memory, lock file, kernel object) are created fresh
// and deleted again on Close.
func CreateRobustMutex(name string) (*RobustMutex, error) {
	impl, err := newRobustMutexImpl(name, true)
	if err != nil {
		return nil, err
	}
	return &RobustMutex{name: name, impl: impl}, nil
}

// OpenRobustMutex attaches to a mutex another process created. It fails
// with parallel.ErrResourceMissing if no owner has created the named mutex
// yet; callers may retry as owner.
func OpenRobustMutex(name string) (*RobustMutex, error) {
	impl, err := newRobustMutexImpl(name, false)
	if err != nil {
		return nil, err
	}
	return &RobustMutex{name: name, impl: impl}, nil
}

// Name returns the name the mutex was created or opened with.
func (m *RobustMutex) Name() string { return m.name }

// Lock blocks until the mutex is acquired. If the previous holder died
// while holding it, ownership is recovered and Lock succeeds.
func (m *RobustMutex) Lock() error {
	if m.impl == nil {
		return parallel.ErrUninitialized
	}
	return m.impl.lock()
}

// TryLock acquires the mutex if it is free, reporting whether it did.
// Contention is not an error: (false, nil) means somebody else holds it.
func (m *RobustMutex) TryLock() (bool, error) {
	if m.impl == nil {
		return false, parallel.ErrUninitialized
	}
	return m.impl.tryLock()
}

// Unlock releases the mutex.
func (m *RobustMutex) Unlock() error {
	if m.impl == nil {
		return parallel.ErrUninitialized
	}
	return m.impl.unlock()
}

// Close releases the OS resources behind the mutex. An owner deletes them;
// a non-owner only detaches. Safe to call more than once.
func (m *RobustMutex) Close() {
	if m.impl != nil {
		m.impl.close()
	}
}
