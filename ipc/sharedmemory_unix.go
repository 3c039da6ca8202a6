//go:build linux || darwin

package ipc

/*
#cgo linux LDFLAGS: -lrt
#include <errno.h>
#include <fcntl.h>
#include <stdlib.h>
#include <string.h>
#include <sys/mman.h>
#include <sys/stat.h>
#include <unistd.h>

static int shm_open_wrap(const char *name, int oflag, mode_t mode) {
	return shm_open(name, oflag, mode);
}

static void *map_region(int fd, size_t size) {
	void *addr = mmap(0, size, PROT_READ | PROT_WRITE, MAP_SHARED, fd, 0);
	return addr == MAP_FAILED ? 0 : addr;
}
*/
import "C"

import (
	"errors"
	"syscall"
	"unsafe"

	"github.com/ygrebnov/parallel"
)

// CreateSharedMemory creates (removing any stale region with the same
// name first) and sizes a new POSIX shared-memory object, maps it
// read/write, and schedules unmap+shm_unlink for Close. shm_open and
// friends are C library entry points, not raw syscalls, so they are
// reached via cgo; each C call below uses cgo's two-result form to
// recover errno as a Go error.
func CreateSharedMemory(name string, size int) (*SharedMemory, error) {
	resolved := resolvedName(name)
	cname := C.CString(resolved)
	defer C.free(unsafe.Pointer(cname))

	// Remove any stale region left behind by a crashed prior owner before
	// creating fresh.
	C.shm_unlink(cname)

	fd, errno := C.shm_open_wrap(cname, C.O_CREAT|C.O_RDWR|C.O_EXCL, 0600)
	if fd < 0 {
		return nil, parallel.NewOsError("shm_open", errno)
	}
	if res, errno := C.ftruncate(fd, C.off_t(size)); res != 0 {
		C.close(fd)
		C.shm_unlink(cname)
		return nil, parallel.NewOsError("ftruncate", errno)
	}

	addr, err := mmapFD(fd, size)
	if err != nil {
		C.close(fd)
		C.shm_unlink(cname)
		return nil, err
	}
	C.close(fd)

	s := &SharedMemory{name: name, resolved: resolved, size: size, addr: addr, isOwner: true}
	s.guard = parallel.NewGuard(func() {
		C.munmap(addr, C.size_t(size))
		cn := C.CString(resolved)
		defer C.free(unsafe.Pointer(cn))
		C.shm_unlink(cn)
	})
	return s, nil
}

// OpenSharedMemory opens an existing POSIX shared-memory object as a
// non-owner: maps it read/write and schedules only unmap for Close, never
// shm_unlink. Fails with parallel.ErrResourceMissing if the region does
// not exist, so callers may retry as owner.
func OpenSharedMemory(name string, size int) (*SharedMemory, error) {
	resolved := resolvedName(name)
	cname := C.CString(resolved)
	defer C.free(unsafe.Pointer(cname))

	fd, errno := C.shm_open_wrap(cname, C.O_RDWR, 0)
	if fd < 0 {
		if errors.Is(errno, syscall.ENOENT) {
			return nil, parallel.ErrResourceMissing
		}
		return nil, parallel.NewOsError("shm_open", errno)
	}
	defer C.close(fd)

	addr, err := mmapFD(fd, size)
	if err != nil {
		return nil, err
	}

	s := &SharedMemory{name: name, resolved: resolved, size: size, addr: addr, isOwner: false}
	s.guard = parallel.NewGuard(func() {
		C.munmap(addr, C.size_t(size))
	})
	return s, nil
}

func mmapFD(fd C.int, size int) (unsafe.Pointer, error) {
	addr, errno := C.map_region(fd, C.size_t(size))
	if addr == nil {
		return nil, parallel.NewOsError("mmap", errno)
	}
	return addr, nil
}
