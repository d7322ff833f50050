package upload

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := NewStore(t.TempDir(), 1024, []string{".pdf", ".csv", ".txt"})
	require.NoError(t, err)
	return store
}

func TestStore_SaveAndRead(t *testing.T) {
	store := newTestStore(t)

	file, err := store.Save("report.csv", 11, strings.NewReader("a,b\n1,2\n3,4"))
	require.NoError(t, err)
	assert.NotEmpty(t, file.ID)
	assert.Equal(t, "report.csv", file.Name)
	assert.Equal(t, int64(11), file.Size)

	data, err := store.Read(file.ID)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n3,4", string(data))

	path, err := store.Resolve(file.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, file.ID+".csv"))
}

func TestStore_Validation(t *testing.T) {
	store := newTestStore(t)

	t.Run("disallowed extension", func(t *testing.T) {
		_, err := store.Save("malware.exe", 10, strings.NewReader("xxxxxxxxxx"))
		assert.ErrorIs(t, err, ErrDisallowedExtension)
	})

	t.Run("declared size too large", func(t *testing.T) {
		_, err := store.Save("big.txt", 4096, strings.NewReader("small"))
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("actual size enforced regardless of declared", func(t *testing.T) {
		_, err := store.Save("sneaky.txt", 10, strings.NewReader(strings.Repeat("x", 2048)))
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Read("b5f5dd4e-7b5a-4fa0-b4a5-7f2b9e3d8a10")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("traversal id rejected", func(t *testing.T) {
		_, err := store.Resolve("../../etc/passwd")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_FailedWriteLeavesNoFile(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save("big.txt", 10, strings.NewReader(strings.Repeat("x", 2048)))
	require.Error(t, err)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
