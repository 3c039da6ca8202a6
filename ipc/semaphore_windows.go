//go:build windows

package ipc

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/ygrebnov/parallel"
)

// semaphoreChannel is a named one-slot semaphore used as a wake channel.
// Both sides call CreateSemaphore — the second call on an existing name
// opens it — so waiter and notifier agree on the object regardless of
// creation order. Open-by-name is also why the semaphore name embeds the
// composite waiter id: were two waiters ever to share a name, a notify
// aimed at one would silently wake the other.
type semaphoreChannel struct {
	handle windows.Handle
}

func newWakeChannel(name string, id uint64, _ bool) (wakeChannel, error) {
	semName, err := windows.UTF16PtrFromString(fmt.Sprintf("parallel_sem_%s_%d", name, id))
	if err != nil {
		return nil, parallel.NewOsError("UTF16PtrFromString", err)
	}
	handle, err := windows.CreateSemaphore(nil, 0, 1, semName)
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return nil, parallel.NewOsError("CreateSemaphore", err)
	}
	return &semaphoreChannel{handle: handle}, nil
}

func (s *semaphoreChannel) post() error {
	if err := windows.ReleaseSemaphore(s.handle, 1, nil); err != nil {
		return parallel.NewOsError("ReleaseSemaphore", err)
	}
	return nil
}

func (s *semaphoreChannel) recv(timeout time.Duration) (bool, error) {
	wait := uint32(windows.INFINITE)
	if timeout >= 0 {
		wait = uint32(timeout.Milliseconds())
	}
	event, err := windows.WaitForSingleObject(s.handle, wait)
	switch event {
	case windows.WAIT_OBJECT_0:
		return true, nil
	case windows.WAIT_TIMEOUT:
		return false, nil
	default:
		return false, parallel.NewOsError("WaitForSingleObject", err)
	}
}

func (s *semaphoreChannel) close() {
	windows.CloseHandle(s.handle)
}
