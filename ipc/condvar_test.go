//go:build linux

package ipc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newCondPair(t *testing.T, suffix string) (*RobustMutex, *CondVar) {
	t.Helper()
	m, err := CreateRobustMutex(testResourceName("cv_mutex_" + suffix))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	cv, err := CreateCondVar(testResourceName("cv_" + suffix))
	require.NoError(t, err)
	t.Cleanup(cv.Close)
	return m, cv
}

// Two waiters enter WaitBounded with a 500 ms budget; 100 ms later
// NotifyAll fires; both waiters must report notified, not timed out.
func TestCondVar_BroadcastWakesAllWaiters(t *testing.T) {
	m, cv := newCondPair(t, "broadcast")

	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Lock())
			notified, err := cv.WaitBounded(m, 500*time.Millisecond)
			require.NoError(t, err)
			require.NoError(t, m.Unlock())
			results <- notified
		}()
	}

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Lock())
	require.NoError(t, cv.NotifyAll())
	require.NoError(t, m.Unlock())

	wg.Wait()
	close(results)
	for notified := range results {
		require.True(t, notified, "waiter timed out instead of being notified")
	}
}

func TestCondVar_NotifyOneWakesSingleWaiter(t *testing.T) {
	m, cv := newCondPair(t, "notify_one")

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			require.NoError(t, m.Lock())
			notified, err := cv.WaitBounded(m, 400*time.Millisecond)
			require.NoError(t, err)
			require.NoError(t, m.Unlock())
			results <- notified
		}()
	}

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, m.Lock())
	require.NoError(t, cv.NotifyOne())
	require.NoError(t, m.Unlock())

	first := <-results
	second := <-results
	require.True(t, first != second, "exactly one of the two waiters should be notified")
}

func TestCondVar_WaitBoundedTimesOut(t *testing.T) {
	m, cv := newCondPair(t, "timeout")

	require.NoError(t, m.Lock())
	start := time.Now()
	notified, err := cv.WaitBounded(m, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, m.Unlock())

	require.False(t, notified)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

// TestCondVar_PredicateHandshake drives the canonical producer/consumer
// shape: the waiter holds the mutex, checks a predicate stored in shared
// memory, and waits; the producer flips the predicate under the same mutex
// and notifies.
func TestCondVar_PredicateHandshake(t *testing.T) {
	m, cv := newCondPair(t, "handshake")

	region, err := CreateSharedMemory(testResourceName("cv_flag"), 1)
	require.NoError(t, err)
	t.Cleanup(region.Close)
	region.Bytes()[0] = 0

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, m.Lock())
		for region.Bytes()[0] == 0 {
			notified, err := cv.WaitBounded(m, time.Second)
			require.NoError(t, err)
			if !notified {
				break
			}
		}
		require.Equal(t, byte(1), region.Bytes()[0])
		require.NoError(t, m.Unlock())
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, m.Lock())
	region.Bytes()[0] = 1
	require.NoError(t, cv.NotifyAll())
	require.NoError(t, m.Unlock())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never observed the predicate")
	}
}
