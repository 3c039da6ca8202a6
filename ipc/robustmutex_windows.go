//go:build windows

package ipc

import (
	"runtime"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/ygrebnov/parallel"
)

// robustMutexWindows wraps a named kernel mutex. Windows mutexes carry
// "abandoned" semantics natively — if the owning thread or process dies,
// the next wait returns WAIT_ABANDONED and ownership transfers to the
// waiter, so an abandoned wait is treated as a successful acquisition.
type robustMutexWindows struct {
	handle windows.Handle

	holderMu sync.Mutex
	holder   uint64
}

func newRobustMutexImpl(name string, isOwner bool) (robustMutexImpl, error) {
	namePtr, err := windows.UTF16PtrFromString("parallel_mutex_" + name)
	if err != nil {
		return nil, parallel.NewOsError("UTF16PtrFromString", err)
	}
	if isOwner {
		handle, err := windows.CreateMutex(nil, false, namePtr)
		if err != nil {
			return nil, parallel.NewOsError("CreateMutex", err)
		}
		return &robustMutexWindows{handle: handle}, nil
	}
	handle, err := windows.OpenMutex(windows.SYNCHRONIZE, false, namePtr)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND {
			return nil, parallel.ErrResourceMissing
		}
		return nil, parallel.NewOsError("OpenMutex", err)
	}
	return &robustMutexWindows{handle: handle}, nil
}

func (m *robustMutexWindows) currentHolder() uint64 {
	m.holderMu.Lock()
	defer m.holderMu.Unlock()
	return m.holder
}

func (m *robustMutexWindows) setHolder(id uint64) {
	m.holderMu.Lock()
	m.holder = id
	m.holderMu.Unlock()
}

// wait pins the goroutine to its OS thread while the mutex is held, since
// kernel mutex ownership is per-thread and ReleaseMutex must run on the
// acquiring thread.
func (m *robustMutexWindows) wait(timeout uint32) (bool, error) {
	id := goroutineID()
	if m.currentHolder() == id {
		return false, parallel.ErrRecursiveLock
	}
	runtime.LockOSThread()
	event, err := windows.WaitForSingleObject(m.handle, timeout)
	switch event {
	case windows.WAIT_OBJECT_0, windows.WAIT_ABANDONED:
		m.setHolder(id)
		return true, nil
	case windows.WAIT_TIMEOUT:
		runtime.UnlockOSThread()
		return false, nil
	default:
		runtime.UnlockOSThread()
		return false, parallel.NewOsError("WaitForSingleObject", err)
	}
}

func (m *robustMutexWindows) lock() error {
	_, err := m.wait(windows.INFINITE)
	return err
}

func (m *robustMutexWindows) tryLock() (bool, error) {
	return m.wait(0)
}

func (m *robustMutexWindows) unlock() error {
	if m.currentHolder() != goroutineID() {
		return parallel.ErrNotOwner
	}
	if err := windows.ReleaseMutex(m.handle); err != nil {
		return parallel.NewOsError("ReleaseMutex", err)
	}
	m.setHolder(0)
	runtime.UnlockOSThread()
	return nil
}

func (m *robustMutexWindows) close() {
	if m.handle != 0 {
		windows.CloseHandle(m.handle)
		m.handle = 0
	}
}
