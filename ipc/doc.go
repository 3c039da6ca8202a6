// Package ipc hosts the cross-process synchronization primitives: named
// shared memory, a fixed-capacity ring buffer living inside a
// caller-supplied memory block, a robust mutex that survives owner-process
// death, and a paired condition variable. These are independent of the
// parallel package's future/pool machinery — they exist to let separate
// operating-system processes share a buffer and coordinate access to it.
package ipc
