package ipc

import (
	"crypto/sha1"
	"encoding/base64"
	"runtime"
	"unsafe"

	"github.com/ygrebnov/parallel"
)

// SharedMemory is a named, sized, OS-backed memory mapping. An owner
// creates (and, on Close, deletes) the region; a non-owner only opens and
// maps an existing one.
type SharedMemory struct {
	name     string
	resolved string
	size     int
	addr     unsafe.Pointer
	isOwner  bool
	guard    *parallel.Guard
}

// resolvedName maps a caller-supplied name onto the host's shared-memory
// namespace: a raw "/name" on Linux, a SHA-1+base64 digest on Darwin
// (POSIX shared-memory names there are capped around 31 bytes), and the
// raw name on Windows (file-mapping objects have no such length/charset
// restriction). Computed the same deterministic way regardless of which
// side — owner or non-owner — calls it, so both agree on the underlying
// OS resource.
func resolvedName(name string) string {
	switch runtime.GOOS {
	case "darwin":
		sum := sha1.Sum([]byte(name))
		digest := base64.RawURLEncoding.EncodeToString(sum[:])
		if len(digest) > 30 {
			digest = digest[:30]
		}
		return "/" + digest
	case "windows":
		return name
	default:
		return "/" + name
	}
}

// Name returns the name the region was created or opened with.
func (s *SharedMemory) Name() string { return s.name }

// Size returns the mapping size in bytes.
func (s *SharedMemory) Size() int { return s.size }

// IsOwner reports whether this handle owns the region's lifecycle.
func (s *SharedMemory) IsOwner() bool { return s.isOwner }

// Bytes returns a []byte view over the mapped region. The slice is only
// valid for the lifetime of this SharedMemory; callers must not retain it
// past Close.
func (s *SharedMemory) Bytes() []byte {
	if s.addr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(s.addr), s.size)
}

// Close unmaps the region and, if this handle is the owner, deletes the
// underlying OS object. Safe to call more than once. Close never returns
// an error; OS failures here are unrecoverable by the caller anyway.
func (s *SharedMemory) Close() {
	if s.guard != nil {
		s.guard.Run()
	}
}
