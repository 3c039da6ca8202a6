package ipc

import (
	"time"

	"github.com/ygrebnov/parallel"
)

// condVarImpl is the per-OS realization behind CondVar: a process-shared
// pthread condition in shared memory on Linux, or a shared queue of
// waiter ids paired with a per-waiter wake channel on Darwin and
// Windows.
type condVarImpl interface {
	wait(m *RobustMutex) error
	waitBounded(m *RobustMutex, d time.Duration) (bool, error)
	notifyOne() error
	notifyAll() error
	close()
}

// CondVar is a cross-process condition variable, always used together with
// a RobustMutex the waiters hold. Like any condition variable it permits
// spurious wakeups; callers re-check their predicate in a loop. Waiters
// are enrolled in FIFO order, but wakeup order is not strict FIFO —
// notifications may race.
type CondVar struct {
	name string
	impl condVarImpl
}

// CreateCondVar creates the named condition variable as its owner.
func CreateCondVar(name string) (*CondVar, error) {
	impl, err := newCondVarImpl(name, true)
	if err != nil {
		return nil, err
	}
	return &CondVar{name: name, impl: impl}, nil
}

// OpenCondVar attaches to a condition variable another process created,
// failing with parallel.ErrResourceMissing if none exists under name.
func OpenCondVar(name string) (*CondVar, error) {
	impl, err := newCondVarImpl(name, false)
	if err != nil {
		return nil, err
	}
	return &CondVar{name: name, impl: impl}, nil
}

// Name returns the name the condition variable was created or opened with.
func (c *CondVar) Name() string { return c.name }

// Wait atomically releases m and blocks until notified, then re-acquires m
// before returning. The caller must hold m.
func (c *CondVar) Wait(m *RobustMutex) error {
	if c.impl == nil {
		return parallel.ErrUninitialized
	}
	return c.impl.wait(m)
}

// WaitBounded is Wait with a timeout, reporting true if it was notified
// and false if d elapsed first. Either way m is held again on return.
func (c *CondVar) WaitBounded(m *RobustMutex, d time.Duration) (bool, error) {
	if c.impl == nil {
		return false, parallel.ErrUninitialized
	}
	return c.impl.waitBounded(m, d)
}

// NotifyOne wakes one waiter, if any.
func (c *CondVar) NotifyOne() error {
	if c.impl == nil {
		return parallel.ErrUninitialized
	}
	return c.impl.notifyOne()
}

// NotifyAll wakes every current waiter.
func (c *CondVar) NotifyAll() error {
	if c.impl == nil {
		return parallel.ErrUninitialized
	}
	return c.impl.notifyAll()
}

// Close releases the OS resources behind the condition variable. An owner
// deletes them; a non-owner only detaches. Safe to call more than once.
func (c *CondVar) Close() {
	if c.impl != nil {
		c.impl.close()
	}
}
