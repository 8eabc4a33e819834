package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestSecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path)
	assert.Error(t, err)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	first.Release()

	second, err := Acquire(path)
	require.NoError(t, err)
	second.Release()
}
