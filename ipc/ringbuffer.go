package ipc

import "unsafe"

// ringHeader is the fixed 3-word header at the start of a ring buffer's
// memory block, ahead of the slot array.
type ringHeader struct {
	readIndex  uint32
	writeIndex uint32
	count      uint32
}

const ringHeaderSize = unsafe.Sizeof(ringHeader{})

// RingBufferSize returns the number of bytes a memory block needs to hold a
// RingBuffer[T] of the given capacity: the header plus capacity slots.
// Callers size an ipc.SharedMemory region with this before handing its
// bytes to NewRingBuffer.
func RingBufferSize[T any](capacity uint32) int {
	var zero T
	return int(ringHeaderSize) + int(capacity)*int(unsafe.Sizeof(zero))
}

// RingBuffer is a fixed-capacity FIFO living entirely inside a
// caller-supplied byte block — typically the bytes of an ipc.SharedMemory
// region, so that a ring buffer can be shared between processes. Capacity
// is derived from (len(mem) - header size) / sizeof(T). RingBuffer performs
// no internal locking; callers serialize access (normally with a
// RobustMutex).
type RingBuffer[T comparable] struct {
	header *ringHeader
	slots  []T
	cap    uint32
}

// NewRingBuffer constructs a view over mem. The caller decides whether to
// zero the header first (a fresh owner-created region) or leave it as-is
// (attaching to a region another process already initialized).
func NewRingBuffer[T comparable](mem []byte) *RingBuffer[T] {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if uintptr(len(mem)) <= ringHeaderSize {
		panic("ipc: ring buffer memory too small for header")
	}
	capacity := (uintptr(len(mem)) - ringHeaderSize) / elemSize
	header := (*ringHeader)(unsafe.Pointer(&mem[0]))
	var slots []T
	if capacity > 0 {
		slots = unsafe.Slice((*T)(unsafe.Pointer(&mem[ringHeaderSize])), capacity)
	}
	return &RingBuffer[T]{header: header, slots: slots, cap: uint32(capacity)}
}

// Init zeroes the header, making the ring buffer empty. Only the owner of
// the backing memory should call this, exactly once, before any other
// process attaches to it.
func (r *RingBuffer[T]) Init() {
	r.header.readIndex = 0
	r.header.writeIndex = 0
	r.header.count = 0
}

// Capacity reports the fixed maximum number of elements.
func (r *RingBuffer[T]) Capacity() uint32 { return r.cap }

// Count reports the current number of elements, in [0, Capacity()].
func (r *RingBuffer[T]) Count() uint32 { return r.header.count }

// PushBack appends v. It returns false without modifying the buffer if it
// is full.
func (r *RingBuffer[T]) PushBack(v T) bool {
	if r.header.count == r.cap {
		return false
	}
	r.slots[r.header.writeIndex] = v
	r.header.writeIndex = (r.header.writeIndex + 1) % r.cap
	r.header.count++
	return true
}

// PopFront removes and returns the oldest element. ok is false if the
// buffer was empty.
func (r *RingBuffer[T]) PopFront() (v T, ok bool) {
	if r.header.count == 0 {
		return v, false
	}
	v = r.slots[r.header.readIndex]
	var zero T
	r.slots[r.header.readIndex] = zero
	r.header.readIndex = (r.header.readIndex + 1) % r.cap
	r.header.count--
	return v, true
}

// PopBack removes and returns the most recently pushed element.
func (r *RingBuffer[T]) PopBack() (v T, ok bool) {
	if r.header.count == 0 {
		return v, false
	}
	idx := r.backIndex()
	v = r.slots[idx]
	var zero T
	r.slots[idx] = zero
	r.header.writeIndex = idx
	r.header.count--
	return v, true
}

// Front returns the oldest element without removing it.
func (r *RingBuffer[T]) Front() (v T, ok bool) {
	if r.header.count == 0 {
		return v, false
	}
	return r.slots[r.header.readIndex], true
}

// Back returns the most recently pushed element without removing it.
func (r *RingBuffer[T]) Back() (v T, ok bool) {
	if r.header.count == 0 {
		return v, false
	}
	return r.slots[r.backIndex()], true
}

func (r *RingBuffer[T]) backIndex() uint32 {
	return (r.header.writeIndex + r.cap - 1) % r.cap
}

// Contains reports whether v is present anywhere in the buffer.
func (r *RingBuffer[T]) Contains(v T) bool {
	for i := uint32(0); i < r.header.count; i++ {
		if r.slots[(r.header.readIndex+i)%r.cap] == v {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of v, found scanning from the front,
// by overwriting its slot with the current back element and then popping
// the back; stable order is not preserved. It reports whether a match was
// found.
func (r *RingBuffer[T]) Remove(v T) bool {
	n := r.header.count
	for i := uint32(0); i < n; i++ {
		idx := (r.header.readIndex + i) % r.cap
		if r.slots[idx] != v {
			continue
		}
		backIdx := r.backIndex()
		r.slots[idx] = r.slots[backIdx]
		var zero T
		r.slots[backIdx] = zero
		r.header.writeIndex = backIdx
		r.header.count--
		return true
	}
	return false
}
