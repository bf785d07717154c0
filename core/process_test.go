package core

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, isProcessAlive(os.Getpid()))
	for _, pid := range []int{-1, 0, 999999999} {
		assert.False(t, isProcessAlive(pid), "pid %d", pid)
	}
}

func TestLockStale(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "user.rb.lock")

	assert.True(t, lockStale(lockPath), "missing lock file")

	require.NoError(t, os.WriteFile(lockPath, []byte("not-a-pid"), 0o644))
	assert.True(t, lockStale(lockPath), "garbage content")

	require.NoError(t, os.WriteFile(lockPath, []byte("999999999\n"), 0o644))
	assert.True(t, lockStale(lockPath), "dead owner")

	require.NoError(t, os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644))
	assert.False(t, lockStale(lockPath), "live owner")

	require.NoError(t, os.WriteFile(lockPath, nil, 0o644))
	assert.False(t, lockStale(lockPath), "owner still writing")
}
