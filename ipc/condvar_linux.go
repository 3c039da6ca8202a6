//go:build linux

package ipc

/*
#include <errno.h>
#include <pthread.h>
#include <time.h>

static int cond_init_shared(pthread_cond_t *cond) {
	pthread_condattr_t attributes;
	int result = pthread_condattr_init(&attributes);
	if (result != 0) {
		return result;
	}
	pthread_condattr_setpshared(&attributes, PTHREAD_PROCESS_SHARED);
	pthread_condattr_setclock(&attributes, CLOCK_REALTIME);
	result = pthread_cond_init(cond, &attributes);
	pthread_condattr_destroy(&attributes);
	return result;
}

static int cond_timedwait_ms(pthread_cond_t *cond, pthread_mutex_t *mutex, long long timeout_ms) {
	struct timespec deadline;
	clock_gettime(CLOCK_REALTIME, &deadline);
	deadline.tv_sec += timeout_ms / 1000;
	deadline.tv_nsec += (timeout_ms % 1000) * 1000000;
	if (deadline.tv_nsec >= 1000000000) {
		deadline.tv_nsec -= 1000000000;
		deadline.tv_sec += 1;
	}
	return pthread_cond_timedwait(cond, mutex, &deadline);
}
*/
import "C"

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/ygrebnov/parallel"
)

// condVarLinux is a process-shared pthread condition variable placed in
// a named shared-memory region. Timed waits convert the relative timeout
// to an absolute CLOCK_REALTIME deadline.
type condVarLinux struct {
	memory  *SharedMemory
	isOwner bool
}

const condRegionPrefix = "ipc_cond_"

func newCondVarImpl(name string, isOwner bool) (condVarImpl, error) {
	region := condRegionPrefix + name
	size := int(C.sizeof_pthread_cond_t)

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

	c := &condVarLinux{memory: memory, isOwner: isOwner}
	if isOwner {
		if result := C.cond_init_shared(c.handle()); result != 0 {
			memory.Close()
			return nil, parallel.NewOsError("pthread_cond_init", syscall.Errno(result))
		}
	}
	return c, nil
}

func (c *condVarLinux) handle() *C.pthread_cond_t {
	return (*C.pthread_cond_t)(unsafe.Pointer(&c.memory.Bytes()[0]))
}

// mutexHandle digs the pthread mutex out of the paired RobustMutex; on
// Linux that is always a robustMutexLinux.
func mutexHandle(m *RobustMutex) (*C.pthread_mutex_t, error) {
	impl, ok := m.impl.(*robustMutexLinux)
	if !ok {
		return nil, parallel.ErrUninitialized
	}
	return (*C.pthread_mutex_t)(impl.pthreadMutexPtr()), nil
}

func (c *condVarLinux) wait(m *RobustMutex) error {
	mutex, err := mutexHandle(m)
	if err != nil {
		return err
	}
	result := C.pthread_cond_wait(c.handle(), mutex)
	switch result {
	case 0:
		return nil
	case C.EOWNERDEAD:
		C.pthread_mutex_consistent(mutex)
		return nil
	default:
		return parallel.NewOsError("pthread_cond_wait", syscall.Errno(result))
	}
}

func (c *condVarLinux) waitBounded(m *RobustMutex, d time.Duration) (bool, error) {
	mutex, err := mutexHandle(m)
	if err != nil {
		return false, err
	}
	result := C.cond_timedwait_ms(c.handle(), mutex, C.longlong(d.Milliseconds()))
	switch result {
	case 0:
		return true, nil
	case C.EOWNERDEAD:
		C.pthread_mutex_consistent(mutex)
		return true, nil
	case C.ETIMEDOUT:
		return false, nil
	default:
		return false, parallel.NewOsError("pthread_cond_timedwait", syscall.Errno(result))
	}
}

func (c *condVarLinux) notifyOne() error {
	if result := C.pthread_cond_signal(c.handle()); result != 0 {
		return parallel.NewOsError("pthread_cond_signal", syscall.Errno(result))
	}
	return nil
}

func (c *condVarLinux) notifyAll() error {
	if result := C.pthread_cond_broadcast(c.handle()); result != 0 {
		return parallel.NewOsError("pthread_cond_broadcast", syscall.Errno(result))
	}
	return nil
}

func (c *condVarLinux) close() {
	if c.memory == nil {
		return
	}
	if c.isOwner {
		C.pthread_cond_destroy(c.handle())
	}
	c.memory.Close()
	c.memory = nil
}
