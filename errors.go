package parallel

import (
	"errors"
	"fmt"
)

// Namespace prefixes every sentinel error string defined in this package.
// The ipc subpackage reports its contract violations with these same
// sentinels.
const Namespace = "parallel"

var (
	// ErrUninitialized is returned when an operation is attempted on a
	// Future or Promise that holds no shared state (the zero value).
	ErrUninitialized = errors.New(Namespace + ": future or promise is uninitialized")

	// ErrBrokenPromise is the error a Future resolves to when its Promise
	// was abandoned (destroyed, or explicitly released) while still
	// Pending.
	ErrBrokenPromise = errors.New(Namespace + ": broken promise")

	// ErrAlreadySatisfied is returned by SetValue/SetFailure when the
	// shared state has already left the Pending stage.
	ErrAlreadySatisfied = errors.New(Namespace + ": promise already satisfied")

	// ErrResourceMissing indicates a named cross-process resource (shared
	// memory segment, lock file, semaphore) that a caller expected to
	// already exist could not be opened.
	ErrResourceMissing = errors.New(Namespace + ": resource missing")

	// ErrRecursiveLock indicates a robust mutex was locked again by the
	// same thread of control that already holds it.
	ErrRecursiveLock = errors.New(Namespace + ": recursive lock")

	// ErrNotOwner indicates unlock was attempted by a thread of control
	// that does not currently hold the lock.
	ErrNotOwner = errors.New(Namespace + ": unlock by non-owner")
)

// OsError wraps a failed operating-system call, preserving the operation
// name and the underlying errno/syscall error for inspection via errors.As
// and errors.Unwrap.
type OsError struct {
	Op  string
	Err error
}

func (e *OsError) Error() string {
	return fmt.Sprintf("%s: %s: %v", Namespace, e.Op, e.Err)
}

func (e *OsError) Unwrap() error { return e.Err }

// NewOsError builds an *OsError, returning nil if err is nil so call sites
// can write `return NewOsError("mmap", err)` unconditionally.
func NewOsError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OsError{Op: op, Err: err}
}
