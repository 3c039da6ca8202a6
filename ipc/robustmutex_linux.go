//go:build linux

package ipc

/*
#include <errno.h>
#include <pthread.h>
#include <stdlib.h>

static int mutex_init_robust(pthread_mutex_t *mutex) {
	pthread_mutexattr_t attributes;
	int result = pthread_mutexattr_init(&attributes);
	if (result != 0) {
		return result;
	}
	pthread_mutexattr_setrobust(&attributes, PTHREAD_MUTEX_ROBUST);
	pthread_mutexattr_setpshared(&attributes, PTHREAD_PROCESS_SHARED);
	pthread_mutexattr_settype(&attributes, PTHREAD_MUTEX_ERRORCHECK);
	result = pthread_mutex_init(mutex, &attributes);
	pthread_mutexattr_destroy(&attributes);
	return result;
}
*/
import "C"

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/ygrebnov/parallel"
)

// robustMutexLinux is a robust, process-shared, error-checking pthread
// mutex placed in a named shared-memory region. If the OS reports the
// previous owner died holding the lock (EOWNERDEAD), the mutex is marked
// consistent and the lock call succeeds.
type robustMutexLinux struct {
	memory  *SharedMemory
	isOwner bool
}

const mutexRegionPrefix = "ipc_mutex_"

func newRobustMutexImpl(name string, isOwner bool) (robustMutexImpl, error) {
	region := mutexRegionPrefix + name
	size := int(C.sizeof_pthread_mutex_t)

	var (
		memory *SharedMemory
		err    error
	)
	if isOwner {
		memory, err = CreateSharedMemory(region, size)
	} else {
		memory, err = OpenSharedMemory(region, size)
	}
	if err != nil {
		return nil, err
	}

	m := &robustMutexLinux{memory: memory, isOwner: isOwner}
	if isOwner {
		if result := C.mutex_init_robust(m.handle()); result != 0 {
			memory.Close()
			return nil, parallel.NewOsError("pthread_mutex_init", syscall.Errno(result))
		}
	}
	return m, nil
}

func (m *robustMutexLinux) handle() *C.pthread_mutex_t {
	return (*C.pthread_mutex_t)(unsafe.Pointer(&m.memory.Bytes()[0]))
}

// pthreadMutexPtr exposes the raw handle for CondVar's
// pthread_cond_wait, which needs the mutex and condition in one call.
func (m *robustMutexLinux) pthreadMutexPtr() unsafe.Pointer {
	return unsafe.Pointer(m.handle())
}

// lock pins the calling goroutine to its OS thread for the duration of the
// hold: pthread mutex ownership is per-thread, so the goroutine must still
// be on the same thread when it unlocks, and pinning also guarantees no
// other goroutine can run on the holding thread and trip a spurious
// EDEADLK.
func (m *robustMutexLinux) lock() error {
	runtime.LockOSThread()
	result := C.pthread_mutex_lock(m.handle())
	switch result {
	case 0:
	case C.EOWNERDEAD:
		C.pthread_mutex_consistent(m.handle())
	case C.EDEADLK:
		runtime.UnlockOSThread()
		return parallel.ErrRecursiveLock
	default:
		runtime.UnlockOSThread()
		return parallel.NewOsError("pthread_mutex_lock", syscall.Errno(result))
	}
	return nil
}

func (m *robustMutexLinux) tryLock() (bool, error) {
	runtime.LockOSThread()
	result := C.pthread_mutex_trylock(m.handle())
	switch result {
	case 0:
		return true, nil
	case C.EOWNERDEAD:
		C.pthread_mutex_consistent(m.handle())
		return true, nil
	case C.EBUSY:
		runtime.UnlockOSThread()
		return false, nil
	case C.EDEADLK:
		runtime.UnlockOSThread()
		return false, parallel.ErrRecursiveLock
	default:
		runtime.UnlockOSThread()
		return false, parallel.NewOsError("pthread_mutex_trylock", syscall.Errno(result))
	}
}

func (m *robustMutexLinux) unlock() error {
	result := C.pthread_mutex_unlock(m.handle())
	switch result {
	case 0:
		runtime.UnlockOSThread()
		return nil
	case C.EPERM:
		return parallel.ErrNotOwner
	default:
		return parallel.NewOsError("pthread_mutex_unlock", syscall.Errno(result))
	}
}

func (m *robustMutexLinux) close() {
	if m.memory == nil {
		return
	}
	if m.isOwner {
		C.pthread_mutex_destroy(m.handle())
	}
	m.memory.Close()
	m.memory = nil
}
