package gcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_SetGet(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, exists, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Set("key", []byte("hello")))
	content, exists, err := c.Get("key")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []byte("hello"), content)
}

func TestFileCache_GetOrFetch(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	v1, err := c.GetOrFetch("k", fetch)
	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), v1)

	v2, err := c.GetOrFetch("k", fetch)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestFileCache_Clear(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))
	require.NoError(t, c.Clear())

	_, exists, _ := c.Get("a")
	assert.False(t, exists)
}

func TestFileCache_ActionKeyUsesDocumentedLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.Set("Build.api@v1abc", []byte("payload")))

	path, exists := c.GetPath("Build.api@v1abc")
	assert.True(t, exists)
	assert.Equal(t, filepath.Join(dir, "Build", "api", "v1abc.json"), path)
}

func TestStatusCache_SetGetPurge(t *testing.T) {
	c, err := NewStatusCache(10)
	require.NoError(t, err)

	_, ok := c.Get("build.svc")
	assert.False(t, ok)

	c.Set("build.svc", "ready")
	v, ok := c.Get("build.svc")
	require.True(t, ok)
	assert.Equal(t, "ready", v)

	c.Purge()
	_, ok = c.Get("build.svc")
	assert.False(t, ok)
}
