// Package artifact_test tests the sharded artifact cache.
package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faarchive/journaliser/internal/store/artifact"
)

func newCache(t *testing.T) *artifact.Cache {
	t.Helper()
	cache, err := artifact.New(artifact.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return cache
}

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cache, err := artifact.New(artifact.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, cache)
	})
	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := artifact.New(artifact.Config{})
		assert.Error(t, err)
	})
	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "store")
		_, err := artifact.New(artifact.Config{BaseDir: base})
		require.NoError(t, err)
		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "afile")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := artifact.New(artifact.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	cache := newCache(t)
	body := []byte("<html>journal</html>")
	require.NoError(t, cache.Write(10923887, body))

	got, err := cache.Read(10923887)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	ok, err := cache.Exists(10923887)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteOverwrites(t *testing.T) {
	cache := newCache(t)
	require.NoError(t, cache.Write(5, []byte("first")))
	require.NoError(t, cache.Write(5, []byte("second")))
	got, err := cache.Read(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestDelete(t *testing.T) {
	cache := newCache(t)
	require.NoError(t, cache.Write(7, []byte("x")))
	require.NoError(t, cache.Delete(7))
	ok, err := cache.Exists(7)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	require.NoError(t, cache.Delete(7))
}

func TestListIDs(t *testing.T) {
	cache := newCache(t)
	for _, id := range []int64{10, 9, 6, 5, 2_000_001} {
		require.NoError(t, cache.Write(id, []byte("x")))
	}

	ids, err := cache.ListIDs(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 9, 10, 2_000_001}, ids)

	ids, err = cache.ListIDs(6, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 9, 10}, ids)
}
