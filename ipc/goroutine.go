package ipc

import "runtime"

// goroutineID parses the current goroutine's id out of its stack header.
// Goroutines are this module's "thread of control" for recursion and
// ownership checks on RobustMutex. The ids are only meaningful within one
// process; anything crossing a process boundary (CondVar's waiter ids,
// in particular) must not use them alone.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
