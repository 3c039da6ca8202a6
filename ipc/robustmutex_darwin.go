//go:build darwin

package ipc

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ygrebnov/parallel"
)

// robustMutexDarwin layers two locks, since Darwin has no robust pthread
// mutexes: an intra-process deadlock-checking mutex coordinates the
// goroutines of this process, and an exclusive advisory lock on a
// well-known file coordinates processes — the kernel drops the advisory
// lock automatically when the holding process dies, which is what makes
// the composite recoverable.
//
// Acquire order is fixed: local mutex first, then the file lock; release
// runs in reverse.
type robustMutexDarwin struct {
	local    sync.Mutex
	holderMu sync.Mutex
	holder   uint64

	file    *flock.Flock
	isOwner bool
}

func lockFilePath(name string) string {
	return fmt.Sprintf("/tmp/mutex_%s.lock", name)
}

func newRobustMutexImpl(name string, isOwner bool) (robustMutexImpl, error) {
	path := lockFilePath(name)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, parallel.NewOsError("stat", err)
		}
		if !isOwner {
			return nil, parallel.ErrResourceMissing
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, parallel.NewOsError("open", err)
		}
		f.Close()
	}
	return &robustMutexDarwin{file: flock.New(path), isOwner: isOwner}, nil
}

func (m *robustMutexDarwin) currentHolder() uint64 {
	m.holderMu.Lock()
	defer m.holderMu.Unlock()
	return m.holder
}

func (m *robustMutexDarwin) setHolder(id uint64) {
	m.holderMu.Lock()
	m.holder = id
	m.holderMu.Unlock()
}

func (m *robustMutexDarwin) lock() error {
	id := goroutineID()
	if m.currentHolder() == id {
		return parallel.ErrRecursiveLock
	}
	m.local.Lock()
	if err := m.file.Lock(); err != nil {
		m.local.Unlock()
		return parallel.NewOsError("flock", err)
	}
	m.setHolder(id)
	return nil
}

func (m *robustMutexDarwin) tryLock() (bool, error) {
	id := goroutineID()
	if m.currentHolder() == id {
		return false, parallel.ErrRecursiveLock
	}
	if !m.local.TryLock() {
		return false, nil
	}
	acquired, err := m.file.TryLock()
	if err != nil {
		m.local.Unlock()
		return false, parallel.NewOsError("flock", err)
	}
	if !acquired {
		m.local.Unlock()
		return false, nil
	}
	m.setHolder(id)
	return true, nil
}

func (m *robustMutexDarwin) unlock() error {
	if m.currentHolder() != goroutineID() {
		return parallel.ErrNotOwner
	}
	if err := m.file.Unlock(); err != nil {
		return parallel.NewOsError("flock", err)
	}
	m.setHolder(0)
	m.local.Unlock()
	return nil
}

func (m *robustMutexDarwin) close() {
	m.file.Close()
	if m.isOwner {
		os.Remove(m.file.Path())
	}
}
