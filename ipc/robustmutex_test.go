//go:build linux

package ipc

import (
	"bufio"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/parallel"
)

func TestRobustMutex_LockUnlock(t *testing.T) {
	m, err := CreateRobustMutex(testResourceName("lock_unlock"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
}

func TestRobustMutex_TryLockContention(t *testing.T) {
	m, err := CreateRobustMutex(testResourceName("trylock"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Lock())

	// Another goroutine (pinned to another OS thread by Lock itself)
	// must observe contention without blocking or side effects.
	result := make(chan bool, 1)
	go func() {
		ok, err := m.TryLock()
		require.NoError(t, err)
		result <- ok
	}()
	require.False(t, <-result)

	require.NoError(t, m.Unlock())

	go func() {
		ok, err := m.TryLock()
		require.NoError(t, err)
		if ok {
			require.NoError(t, m.Unlock())
		}
		result <- ok
	}()
	require.True(t, <-result)
}

func TestRobustMutex_RecursiveLockFails(t *testing.T) {
	m, err := CreateRobustMutex(testResourceName("recursive"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Lock())
	require.ErrorIs(t, m.Lock(), parallel.ErrRecursiveLock)
	require.NoError(t, m.Unlock())
}

func TestRobustMutex_UnlockByNonOwnerFails(t *testing.T) {
	m, err := CreateRobustMutex(testResourceName("nonowner"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Lock())

	errs := make(chan error, 1)
	go func() {
		errs <- m.Unlock()
	}()
	require.ErrorIs(t, <-errs, parallel.ErrNotOwner)

	require.NoError(t, m.Unlock())
}

func TestRobustMutex_OpenMissingIsResourceMissing(t *testing.T) {
	_, err := OpenRobustMutex(testResourceName("missing"))
	require.ErrorIs(t, err, parallel.ErrResourceMissing)
}

func TestRobustMutex_ZeroValueIsUninitialized(t *testing.T) {
	var m RobustMutex
	require.ErrorIs(t, m.Lock(), parallel.ErrUninitialized)
	_, err := m.TryLock()
	require.ErrorIs(t, err, parallel.ErrUninitialized)
	require.ErrorIs(t, m.Unlock(), parallel.ErrUninitialized)
}

// A child process opens the mutex, locks it, and dies without unlocking;
// the parent's subsequent Lock must succeed within bounded time, and the
// mutex must keep working after the recovery.
func TestRobustMutex_OwnerDeathRecovery(t *testing.T) {
	name := testResourceName("owner_death")
	m, err := CreateRobustMutex(name)
	require.NoError(t, err)
	defer m.Close()

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), childModeEnv+"=lock-and-exit", childNameEnv+"="+name)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "locked\n", line)
	require.NoError(t, cmd.Wait())

	// Ownership is per goroutine, so the goroutine that recovers the lock
	// also releases it.
	locked := make(chan error, 1)
	unlocked := make(chan error, 1)
	go func() {
		err := m.Lock()
		locked <- err
		if err == nil {
			unlocked <- m.Unlock()
		}
	}()
	select {
	case err := <-locked:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lock after owner death did not complete in time")
	}

	require.NoError(t, <-unlocked)
	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
}
