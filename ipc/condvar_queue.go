//go:build darwin || windows

package ipc

import (
	"errors"
	"os"
	"sync/atomic"
	"time"
)

// errQueueFull is surfaced when more waiters are enrolled than the shared
// queue can hold; with condQueueCapacity slots it indicates runaway waiter
// leakage rather than legitimate load.
var errQueueFull = errors.New("ipc: condition variable waiter queue is full")

// wakeChannel is the per-waiter one-slot wakeup primitive notifiers post
// to: a named FIFO on Darwin, a named semaphore on Windows. A negative
// timeout to recv means block indefinitely.
type wakeChannel interface {
	post() error
	recv(timeout time.Duration) (bool, error)
	close()
}

// condVarQueue realizes the condition variable for hosts without
// process-shared pthread condition variables: a ring buffer of waiter ids
// lives in shared memory, guarded by its own RobustMutex; a waiter
// enrolls its id, releases both locks, and blocks reading its wake
// channel; notify pops an id and posts to the matching channel.
type condVarQueue struct {
	name       string
	memory     *SharedMemory
	queue      *RingBuffer[uint64]
	queueMutex *RobustMutex
	isOwner    bool
}

const condQueueCapacity = 1024

// waiterSeq disambiguates concurrent waiters within one process.
var waiterSeq atomic.Uint32

// waiterID returns an identifier unique across every process sharing the
// condition variable: the process id in the high 32 bits, a per-process
// sequence number in the low 32. Goroutine ids will not do here — they
// are per-process and deterministic (the main goroutine is always 1), so
// waiters in different processes would collide on the same wake-channel
// name.
func waiterID() uint64 {
	return uint64(os.Getpid())<<32 | uint64(waiterSeq.Add(1))
}

func newCondVarImpl(name string, isOwner bool) (condVarImpl, error) {
	region := name + "_threadqueue"
	size := RingBufferSize[uint64](condQueueCapacity)

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

	queue := NewRingBuffer[uint64](memory.Bytes())
	if isOwner {
		queue.Init()
	}

	var queueMutex *RobustMutex
	if isOwner {
		queueMutex, err = CreateRobustMutex(name + "_threadqueue")
	} else {
		queueMutex, err = OpenRobustMutex(name + "_threadqueue")
	}
	if err != nil {
		memory.Close()
		return nil, err
	}

	return &condVarQueue{
		name:       name,
		memory:     memory,
		queue:      queue,
		queueMutex: queueMutex,
		isOwner:    isOwner,
	}, nil
}

// enroll creates the caller's wake channel and appends its id to the
// shared queue, all under the queue mutex, then releases both the caller's
// mutex and the queue mutex. The release order — caller's mutex while the
// queue mutex is still held — keeps enrollment atomic with respect to a
// notifier that grabs the queue mutex the moment the caller's mutex drops.
func (c *condVarQueue) enroll(m *RobustMutex, id uint64) (wakeChannel, error) {
	if err := c.queueMutex.Lock(); err != nil {
		return nil, err
	}
	ch, err := newWakeChannel(c.name, id, true)
	if err != nil {
		c.queueMutex.Unlock()
		return nil, err
	}
	if !c.queue.PushBack(id) {
		ch.close()
		c.queueMutex.Unlock()
		return nil, errQueueFull
	}
	if err := m.Unlock(); err != nil {
		c.queue.Remove(id)
		ch.close()
		c.queueMutex.Unlock()
		return nil, err
	}
	if err := c.queueMutex.Unlock(); err != nil {
		ch.close()
		return nil, err
	}
	return ch, nil
}

func (c *condVarQueue) wait(m *RobustMutex) error {
	id := waiterID()
	ch, err := c.enroll(m, id)
	if err != nil {
		return err
	}
	_, recvErr := ch.recv(-1)
	ch.close()
	if err := m.Lock(); err != nil {
		return err
	}
	return recvErr
}

func (c *condVarQueue) waitBounded(m *RobustMutex, d time.Duration) (bool, error) {
	id := waiterID()
	ch, err := c.enroll(m, id)
	if err != nil {
		return false, err
	}

	notified, recvErr := ch.recv(d)
	if recvErr == nil && !notified {
		// Timed out: withdraw from the queue. If the id is already gone a
		// notifier popped it concurrently and its post is in flight (or
		// already delivered), so consume it and report notified after all.
		if err := c.queueMutex.Lock(); err != nil {
			ch.close()
			_ = m.Lock()
			return false, err
		}
		withdrawn := c.queue.Remove(id)
		c.queueMutex.Unlock()
		if !withdrawn {
			notified, recvErr = ch.recv(-1)
		}
	}
	ch.close()
	if err := m.Lock(); err != nil {
		return notified, err
	}
	return notified, recvErr
}

func (c *condVarQueue) notifyOne() error {
	return WithLock(c.queueMutex, func() error {
		id, ok := c.queue.PopFront()
		if !ok {
			return nil
		}
		return c.postTo(id)
	})
}

func (c *condVarQueue) notifyAll() error {
	return WithLock(c.queueMutex, func() error {
		for {
			id, ok := c.queue.PopFront()
			if !ok {
				return nil
			}
			if err := c.postTo(id); err != nil {
				return err
			}
		}
	})
}

func (c *condVarQueue) postTo(id uint64) error {
	ch, err := newWakeChannel(c.name, id, false)
	if err != nil {
		return err
	}
	defer ch.close()
	return ch.post()
}

func (c *condVarQueue) close() {
	if c.memory == nil {
		return
	}
	c.queueMutex.Close()
	c.memory.Close()
	c.memory = nil
}
