// ABOUTME: Contract tests run against every Store backend
// ABOUTME: Also covers Open backend selection and file permissions

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabfs/collabfs-cli/internal/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "cfg")),
		"sqlite": sqlite,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, err := store.Get("missing")
			require.NoError(t, err)
			assert.Equal(t, "", v)

			require.NoError(t, store.Set("b", "1"))
			require.NoError(t, store.Set("a", "2"))
			require.NoError(t, store.Set("a", "3"))

			v, err = store.Get("a")
			require.NoError(t, err)
			assert.Equal(t, "3", v)

			keys, err := store.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, keys)

			require.NoError(t, store.Delete("a"))
			require.NoError(t, store.Delete("never-set"))
			keys, err = store.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, keys)

			require.NoError(t, store.Clear())
			keys, err = store.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFileStore(dir).Set(KeyEmail, "ada@example.com"))

	v, err := NewFileStore(dir).Get(KeyEmail)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", v)

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))

	store := NewFileStore(dir)
	v, err := store.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, store.Set(KeyToken, "x"))
	v, err = store.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(KeyUserID, "u-1"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	v, err := second.Get(KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", v)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(&config.Config{ConfigDir: dir, SessionBackend: config.BackendFile})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(&config.Config{ConfigDir: dir, SessionBackend: config.BackendSQLite})
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLiteStore{}, store)
	assert.FileExists(t, filepath.Join(dir, "session.db"))

	_, err = Open(&config.Config{ConfigDir: dir, SessionBackend: "redis"})
	assert.Error(t, err)
}
