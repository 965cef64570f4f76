package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("reports/job-1.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "reports/job-1.csv", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "a,b\n", string(body))

	path, err := store.Path(name)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	require.NoError(t, store.Delete(name))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Delete(name), "deleting a missing file is not an error")
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape.csv", "reports/../../escape.csv", "/etc/passwd", ""} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidPath, name)
		_, err = store.Open(name)
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}
}
