//go:build windows

package ipc

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ygrebnov/parallel"
)

// CreateSharedMemory creates a Windows file-mapping object backed by the
// system paging file and maps a read/write view of it, scheduling
// UnmapViewOfFile+CloseHandle for Close.
func CreateSharedMemory(name string, size int) (*SharedMemory, error) {
	resolved := resolvedName(name)
	namePtr, err := windows.UTF16PtrFromString(resolved)
	if err != nil {
		return nil, parallel.NewOsError("UTF16PtrFromString", err)
	}

	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle,
		nil,
		windows.PAGE_READWRITE,
		0,
		uint32(size),
		namePtr,
	)
	if err != nil {
		return nil, parallel.NewOsError("CreateFileMappingA", err)
	}

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, parallel.NewOsError("MapViewOfFile", err)
	}

	s := &SharedMemory{name: name, resolved: resolved, size: size, addr: unsafe.Pointer(addr), isOwner: true}
	s.guard = parallel.NewGuard(func() {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(handle)
	})
	return s, nil
}

// OpenSharedMemory opens an existing file-mapping object as a non-owner via
// OpenFileMappingA, maps it, and schedules only the unmap+close for Close
// (the owner's CreateSharedMemory holds the object's only strong creation
// reference; Windows drops the object once every handle, owner's included,
// is closed).
func OpenSharedMemory(name string, size int) (*SharedMemory, error) {
	resolved := resolvedName(name)
	namePtr, err := windows.UTF16PtrFromString(resolved)
	if err != nil {
		return nil, parallel.NewOsError("UTF16PtrFromString", err)
	}

	handle, err := windows.OpenFileMapping(windows.FILE_MAP_WRITE, false, namePtr)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND {
			return nil, parallel.ErrResourceMissing
		}
		return nil, parallel.NewOsError("OpenFileMappingA", err)
	}

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, parallel.NewOsError("MapViewOfFile", err)
	}

	s := &SharedMemory{name: name, resolved: resolved, size: size, addr: unsafe.Pointer(addr), isOwner: false}
	s.guard = parallel.NewGuard(func() {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(handle)
	})
	return s, nil
}
