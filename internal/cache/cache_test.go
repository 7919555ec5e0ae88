package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesearch/internal/domain"
	"moviesearch/internal/index"
)

func testSnapshot() index.Snapshot {
	return index.Snapshot{
		Movies: []domain.Movie{
			{ID: 1, Title: "Inception", Genres: []string{"Sci-Fi"}},
			{ID: 2, Title: "Titanic", Genres: []string{"Romance"}},
		},
		Documents: []string{"inception. genres: scifi", "titanic. genres: romance"},
		Vectors:   [][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
		Dimension: 3,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewStore(path, "test-model")

	want := testSnapshot()
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Movies, got.Movies)
	assert.Equal(t, want.Documents, got.Documents)
	assert.Equal(t, want.Dimension, got.Dimension)
	require.Len(t, got.Vectors, len(want.Vectors))
	for i := range want.Vectors {
		assert.InDeltaSlice(t, want.Vectors[i], got.Vectors[i], 1e-12)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"), "test-model")
	got, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadModelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, NewStore(path, "model-a").Save(testSnapshot()))

	_, err := NewStore(path, "model-b").Load()
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestLoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewStore(path, "test-model").Load()
	assert.Error(t, err)
}

func TestSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	store := NewStore(path, "test-model")
	require.NoError(t, store.Save(testSnapshot()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, NewStore(path, "test-model").Save(testSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache.json", entries[0].Name())
}

func TestSaveOverwritesWholeArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewStore(path, "test-model")
	require.NoError(t, store.Save(testSnapshot()))

	smaller := index.Snapshot{
		Movies:    []domain.Movie{{ID: 9, Title: "Alien"}},
		Documents: []string{"alien"},
		Vectors:   [][]float64{{1, 0, 0}},
		Dimension: 3,
	}
	require.NoError(t, store.Save(smaller))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got.Movies, 1)
	assert.Equal(t, int64(9), got.Movies[0].ID)
}
