//go:build linux || darwin

package ipc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/parallel"
)

func TestSharedMemory_CreateAndOpen(t *testing.T) {
	name := testResourceName("create_open")
	owner, err := CreateSharedMemory(name, 4096)
	require.NoError(t, err)
	defer owner.Close()

	require.True(t, owner.IsOwner())
	require.Equal(t, name, owner.Name())
	require.Equal(t, 4096, owner.Size())

	copy(owner.Bytes(), []byte("hello"))

	other, err := OpenSharedMemory(name, 4096)
	require.NoError(t, err)
	defer other.Close()

	require.False(t, other.IsOwner())
	require.Equal(t, []byte("hello"), other.Bytes()[:5])

	// Writes through the non-owner mapping are visible to the owner.
	other.Bytes()[0] = 'H'
	require.Equal(t, byte('H'), owner.Bytes()[0])
}

func TestSharedMemory_OpenMissingIsResourceMissing(t *testing.T) {
	_, err := OpenSharedMemory(testResourceName("does_not_exist"), 4096)
	require.ErrorIs(t, err, parallel.ErrResourceMissing)
}

func TestSharedMemory_OwnerCloseUnlinks(t *testing.T) {
	name := testResourceName("unlink")
	owner, err := CreateSharedMemory(name, 1024)
	require.NoError(t, err)
	owner.Close()

	_, err = OpenSharedMemory(name, 1024)
	require.ErrorIs(t, err, parallel.ErrResourceMissing)
}

func TestSharedMemory_CreateReplacesStaleRegion(t *testing.T) {
	name := testResourceName("stale")
	first, err := CreateSharedMemory(name, 1024)
	require.NoError(t, err)
	first.Bytes()[0] = 0xAA

	// A second owner-create replaces the stale region rather than failing
	// with EEXIST.
	second, err := CreateSharedMemory(name, 1024)
	require.NoError(t, err)
	defer second.Close()
	require.Equal(t, byte(0), second.Bytes()[0])

	first.Close()
}

func TestSharedMemory_CloseIsIdempotent(t *testing.T) {
	owner, err := CreateSharedMemory(testResourceName("idempotent"), 512)
	require.NoError(t, err)
	owner.Close()
	owner.Close()
}
