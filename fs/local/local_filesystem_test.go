package fslocal

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	db "github.com/sayden/fqsort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFilesystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "blocks")

	fs, err := InitLocal(tmpDir)
	require.NoError(t, err)

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, name := range []string{"job-block_1.dat", "job-block_0.dat", "zzz"} {
		w, err := fs.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(name + "\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	names, err := fs.List("job-")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-block_0.dat", "job-block_1.dat"}, names)

	r, err := fs.Open("job-block_1.dat")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "job-block_1.dat\n", string(data))

	_, err = fs.Open("missing")
	assert.ErrorIs(t, err, db.ErrBlockNotFound)

	require.NoError(t, fs.Remove("job-block_0.dat"))
	require.NoError(t, fs.Remove("job-block_1.dat"))
	assert.Error(t, fs.Remove("job-block_1.dat"))

	names, err = fs.List("job-")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalFilesystemStaysInRoot(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := InitLocal(tmpDir)
	require.NoError(t, err)

	w, err := fs.Create("../escape.dat")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "escape.dat"))
	assert.NoError(t, err)
}
