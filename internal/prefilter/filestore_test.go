package prefilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefilter.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := fs.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set("rate_limit_submit_order", `{"count":1}`))

	value, ok, err := fs.Get("rate_limit_submit_order")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"count":1}`, value)

	require.NoError(t, fs.Delete("rate_limit_submit_order"))
	_, ok, err = fs.Get("rate_limit_submit_order")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_DeleteMissingKeyIsNoError(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "prefilter.json"))
	require.NoError(t, err)

	assert.NoError(t, fs.Delete("never-existed"))
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefilter.json")

	fs1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs1.Set("rate_limit_contact_form", `{"count":3,"windowStart":1000}`))

	fs2, err := NewFileStore(path)
	require.NoError(t, err)

	value, ok, err := fs2.Get("rate_limit_contact_form")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"count":3,"windowStart":1000}`, value)
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "prefilter.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("k", "v"))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefilter.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestMemoryKV_Basics(t *testing.T) {
	kv := NewMemoryKV()

	_, ok, err := kv.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("a", "1"))
	value, ok, err := kv.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	require.NoError(t, kv.Delete("a"))
	_, ok, _ = kv.Get("a")
	assert.False(t, ok)
}
