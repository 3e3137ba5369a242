package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	// Set a string value
	err = store.Set("raw_root", "export/raw")
	require.NoError(t, err)

	// Get it back
	val, ok := store.Get("raw_root")
	assert.True(t, ok)
	assert.Equal(t, "export/raw", val)
}

func TestStore_GetString(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("out_root", "export")
	require.NoError(t, err)

	val := store.GetString("out_root")
	assert.Equal(t, "export", val)

	// Non-existent key
	val = store.GetString("nonexistent")
	assert.Equal(t, "", val)

	// Wrong type
	err = store.Set("int_key", 42)
	require.NoError(t, err)
	val = store.GetString("int_key")
	assert.Equal(t, "", val)
}

func TestStore_GetInt(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("int_key", 42)
	require.NoError(t, err)

	assert.Equal(t, 42, store.GetInt("int_key"))
	assert.Equal(t, 0, store.GetInt("nonexistent"))
}

func TestStore_GetBool(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("bool_key", true)
	require.NoError(t, err)

	assert.True(t, store.GetBool("bool_key"))
	assert.False(t, store.GetBool("nonexistent"))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("token", "ghp_testvalue"))

	reopened, err := NewStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "ghp_testvalue", reopened.GetString("token"))
}

func TestStore_LoadFlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[github]\ntoken = \"abc\"\n"), 0600))

	store, err := NewStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "abc", store.GetString("github.token"))
}

func TestStore_MissingFileIsNotAnError(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)

	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}
