package ipc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeLocker counts lock/unlock transitions so the scoped-lock helpers can
// be exercised without any OS resources.
type fakeLocker struct {
	locked    bool
	lockCalls int
	lockErr   error
	contended bool
}

func (f *fakeLocker) Lock() error {
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locked = true
	f.lockCalls++
	return nil
}

func (f *fakeLocker) TryLock() (bool, error) {
	if f.lockErr != nil {
		return false, f.lockErr
	}
	if f.contended {
		return false, nil
	}
	f.locked = true
	f.lockCalls++
	return true, nil
}

func (f *fakeLocker) Unlock() error {
	f.locked = false
	return nil
}

func TestAcquire_LocksAndReleaseUnlocks(t *testing.T) {
	m := &fakeLocker{}
	l, err := Acquire(m)
	require.NoError(t, err)
	require.True(t, m.locked)

	l.Release()
	require.False(t, m.locked)

	// Release is run-once; a second call must not unlock again.
	m.locked = true
	l.Release()
	require.True(t, m.locked)
}

func TestTryAcquire_ReportsContention(t *testing.T) {
	m := &fakeLocker{contended: true}
	l, err := TryAcquire(m)
	require.NoError(t, err)
	require.Nil(t, l)

	m.contended = false
	l, err = TryAcquire(m)
	require.NoError(t, err)
	require.NotNil(t, l)
	l.Release()
	require.False(t, m.locked)
}

func TestWithLock_UnlocksOnPanic(t *testing.T) {
	m := &fakeLocker{}
	require.Panics(t, func() {
		_ = WithLock(m, func() error { panic("boom") })
	})
	require.False(t, m.locked)
}

func TestWithLock_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeLocker{}
	require.ErrorIs(t, WithLock(m, func() error { return boom }), boom)
	require.False(t, m.locked)

	m.lockErr = boom
	require.ErrorIs(t, WithLock(m, func() error { return nil }), boom)
}
