package ipc

import (
	"bufio"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// Two separate processes wait on the same named condition variable; a
// single NotifyAll from the parent must wake both. This is the case that
// trips anything per-process leaking into the cross-process contract —
// both children's waits run on their main goroutine, so a wake channel
// keyed on goroutine id alone would make them collide and steal each
// other's notification.
func TestCondVar_CrossProcessBroadcast(t *testing.T) {
	name := testResourceName("cv_xproc")
	mutex, err := CreateRobustMutex(name + "_m")
	require.NoError(t, err)
	defer mutex.Close()
	cv, err := CreateCondVar(name + "_cv")
	require.NoError(t, err)
	defer cv.Close()

	type waiter struct {
		cmd *exec.Cmd
		out *bufio.Reader
	}
	var waiters []waiter
	for i := 0; i < 2; i++ {
		cmd := exec.Command(os.Args[0])
		cmd.Env = append(os.Environ(), childModeEnv+"=condvar-wait", childNameEnv+"="+name)
		stdout, err := cmd.StdoutPipe()
		require.NoError(t, err)
		require.NoError(t, cmd.Start())
		waiters = append(waiters, waiter{cmd: cmd, out: bufio.NewReader(stdout)})
	}

	// Each child prints "waiting" while it holds the mutex and blocks
	// releasing it only inside WaitBounded, so once both lines are in and
	// the parent has acquired the mutex itself, both children are
	// enrolled.
	for _, w := range waiters {
		line, err := w.out.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "waiting\n", line)
	}

	require.NoError(t, mutex.Lock())
	require.NoError(t, cv.NotifyAll())
	require.NoError(t, mutex.Unlock())

	for _, w := range waiters {
		line, err := w.out.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "notified\n", line, "each waiter process must receive its own wakeup")
		require.NoError(t, w.cmd.Wait())
	}
}
