package filepool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExclusiveOpenPreventsSecondHolder(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "worker.db")

	var h1, err = Open(path, os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)
	require.NotNil(t, h1)

	_, err = Open(path, os.O_RDWR, 0644)
	require.Error(t, err)
	require.True(t, IsLocked(err))

	require.NoError(t, h1.Close())

	var h2, err2 = Open(path, os.O_RDWR, 0644)
	require.NoError(t, err2)
	require.NotNil(t, h2)
	require.NoError(t, h2.Close())
}
