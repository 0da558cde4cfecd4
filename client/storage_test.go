package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/field-portal/client"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	fileStorage, err := client.NewFileStorage(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	for name, storage := range map[string]client.Storage{
		"file":   fileStorage,
		"memory": client.NewMemoryStorage(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := storage.Load("missing")
			require.ErrorIs(t, err, client.ErrNotStored)

			require.NoError(t, storage.Save("key", []byte(`{"a":1}`)))
			require.NoError(t, storage.Save("key", []byte(`{"a":2}`)))
			data, err := storage.Load("key")
			require.NoError(t, err)
			require.JSONEq(t, `{"a":2}`, string(data))

			require.NoError(t, storage.Remove("key"))
			require.NoError(t, storage.Remove("key"), "removing twice is fine")
			_, err = storage.Load("key")
			require.ErrorIs(t, err, client.ErrNotStored)
		})
	}
}

func TestFileStorage_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	storage, err := client.NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, storage.Save(client.StorageKey, []byte(`{}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, client.StorageKey+".json", entries[0].Name())
}

func TestNewFileStorage_RequiresDir(t *testing.T) {
	_, err := client.NewFileStorage("")
	require.Error(t, err)
}
