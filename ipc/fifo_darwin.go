//go:build darwin

package ipc

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ygrebnov/parallel"
)

// fifoChannel is a named FIFO used as a one-slot wake channel: the
// waiter creates (and later unlinks) its FIFO, the notifier opens the
// same path and writes a fixed sync token, the waiter polls for
// readability and reads it back. The path embeds the composite waiter id,
// so every waiter in every process gets its own FIFO.
type fifoChannel struct {
	fd      int
	path    string
	isOwner bool
}

// fifoSyncToken is the fixed payload posted through a FIFO; the value is
// arbitrary, only its 4-byte length matters.
const fifoSyncToken = uint32(0x12345678)

func fifoPath(name string, id uint64) string {
	return fmt.Sprintf("/tmp/parallel_fifo_%s_%d", name, id)
}

func newWakeChannel(name string, id uint64, isOwner bool) (wakeChannel, error) {
	path := fifoPath(name, id)
	if isOwner {
		if err := unix.Mkfifo(path, 0600); err != nil {
			if err != unix.EEXIST {
				return nil, parallel.NewOsError("mkfifo", err)
			}
			// Waiter ids are unique across live processes, so an existing
			// FIFO can only be left over from a crashed process whose pid
			// (and sequence number) were later reused. Recreate it so no
			// stale token is buffered inside.
			unix.Unlink(path)
			if err := unix.Mkfifo(path, 0600); err != nil {
				return nil, parallel.NewOsError("mkfifo", err)
			}
		}
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		if isOwner {
			unix.Unlink(path)
		}
		if err == unix.ENOENT {
			return nil, parallel.ErrResourceMissing
		}
		return nil, parallel.NewOsError("open", err)
	}
	return &fifoChannel{fd: fd, path: path, isOwner: isOwner}, nil
}

func (f *fifoChannel) post() error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], fifoSyncToken)
	if _, err := unix.Write(f.fd, buf[:]); err != nil {
		return parallel.NewOsError("write", err)
	}
	return nil
}

// recv blocks until the sync token is readable, polling in 10-second
// slices when no timeout bounds the wait. A negative timeout means wait
// indefinitely; recv reports false if the timeout elapsed first.
func (f *fifoChannel) recv(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(f.fd), Events: unix.POLLIN}}
	for {
		slice := 10000
		if timeout >= 0 {
			slice = int(timeout.Milliseconds())
		}
		n, err := unix.Poll(fds, slice)
		if err != nil && err != unix.EINTR {
			return false, parallel.NewOsError("poll", err)
		}
		if n > 0 {
			break
		}
		if timeout >= 0 {
			return false, nil
		}
	}

	var buf [4]byte
	toRead := len(buf)
	for toRead > 0 {
		n, err := unix.Read(f.fd, buf[len(buf)-toRead:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return false, parallel.NewOsError("read", err)
		}
		toRead -= n
	}
	return true, nil
}

func (f *fifoChannel) close() {
	unix.Close(f.fd)
	if f.isOwner {
		unix.Unlink(f.path)
	}
}
