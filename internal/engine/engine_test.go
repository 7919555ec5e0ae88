package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesearch/internal/cache"
	"moviesearch/internal/domain"
	"moviesearch/internal/index"
)

// stubEncoder returns hand-chosen vectors keyed by (normalized) text.
type stubEncoder struct {
	vectors map[string][]float64
	calls   int
}

func (s *stubEncoder) Model() string { return "stub" }

func (s *stubEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := s.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	vecs, err := s.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type stubCatalog struct {
	movies []domain.Movie
	err    error
	calls  int
}

func (s *stubCatalog) AllMovies(context.Context) ([]domain.Movie, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.movies, nil
}

func unitVec(c float64) []float64 {
	return []float64{c, math.Sqrt(1 - c*c)}
}

func testMovies() []domain.Movie {
	return []domain.Movie{
		{ID: 1, Title: "Inception", Genres: []string{"Sci-Fi"}},
		{ID: 2, Title: "Titanic", Genres: []string{"Romance"}},
	}
}

func testEncoder() *stubEncoder {
	return &stubEncoder{vectors: map[string][]float64{
		"inception. genres: scifi": unitVec(0.9),
		"titanic. genres: romance": unitVec(0.1),
		"space dreams":             {1, 0},
	}}
}

func newTestEngine(t *testing.T, cat *stubCatalog, enc *stubEncoder) *Engine {
	t.Helper()
	return newTestEngineAt(t, filepath.Join(t.TempDir(), "cache.json"), cat, enc)
}

func newTestEngineAt(t *testing.T, cachePath string, cat *stubCatalog, enc *stubEncoder) *Engine {
	t.Helper()
	return New(Options{
		Encoder: enc,
		Catalog: cat,
		Cache:   cache.NewStore(cachePath, enc.Model()),
	})
}

func TestSearchEndToEnd(t *testing.T) {
	eng := newTestEngine(t, &stubCatalog{movies: testMovies()}, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))

	ids, err := eng.Search(context.Background(), "space dreams", 5)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids, "Inception must rank above Titanic")
}

func TestQueryReturnsScoresInDescendingOrder(t *testing.T) {
	eng := newTestEngine(t, &stubCatalog{movies: testMovies()}, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))

	results, err := eng.Query(context.Background(), "space dreams", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Inception", results[0].Movie.Title)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.InDelta(t, 0.1, results[1].Score, 1e-9)
}

func TestNotReadyBeforeInitialize(t *testing.T) {
	eng := newTestEngine(t, &stubCatalog{movies: testMovies()}, testEncoder())
	assert.Equal(t, StateUninitialized, eng.State())

	_, err := eng.Search(context.Background(), "space dreams", 5)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = eng.AddMovies(context.Background(), testMovies())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestInitializeIdempotent(t *testing.T) {
	cat := &stubCatalog{movies: testMovies()}
	eng := newTestEngine(t, cat, testEncoder())

	require.NoError(t, eng.Initialize(context.Background()))
	require.NoError(t, eng.Initialize(context.Background()))
	assert.Equal(t, 1, cat.calls, "second Initialize must be a no-op")
	assert.Equal(t, StateReady, eng.State())
}

func TestInitializeFailureAllowsRetry(t *testing.T) {
	cat := &stubCatalog{err: errors.New("catalog unreachable")}
	eng := newTestEngine(t, cat, testEncoder())

	require.Error(t, eng.Initialize(context.Background()))
	assert.Equal(t, StateUninitialized, eng.State())

	cat.err = nil
	cat.movies = testMovies()
	require.NoError(t, eng.Initialize(context.Background()))
	assert.Equal(t, StateReady, eng.State())
}

func TestInitializeLoadsFromCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	cat := &stubCatalog{movies: testMovies()}
	require.NoError(t, newTestEngineAt(t, cachePath, cat, testEncoder()).Initialize(context.Background()))
	require.Equal(t, 1, cat.calls)

	// a fresh process with the same cache path must not hit the catalog
	eng := newTestEngineAt(t, cachePath, cat, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))
	assert.Equal(t, 1, cat.calls)
	assert.Equal(t, 2, eng.Len())

	ids, err := eng.Search(context.Background(), "space dreams", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestInitializeRecoversFromInconsistentCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	// schema-valid artifact whose parallel arrays are out of lockstep
	bad := index.Snapshot{
		Movies:    []domain.Movie{{ID: 9, Title: "Stray"}},
		Documents: []string{"stray", "orphan"},
		Vectors:   [][]float64{{1, 0}},
		Dimension: 2,
	}
	require.NoError(t, cache.NewStore(cachePath, "stub").Save(bad))

	cat := &stubCatalog{movies: testMovies()}
	eng := newTestEngineAt(t, cachePath, cat, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))
	assert.Equal(t, 1, cat.calls, "inconsistent cache must degrade to a catalog rebuild")
	assert.Equal(t, StateReady, eng.State())
	assert.Equal(t, 2, eng.Len())

	// the rebuild rewrote the bad artifact, so a fresh process loads cleanly
	restored := newTestEngineAt(t, cachePath, &stubCatalog{}, testEncoder())
	require.NoError(t, restored.Initialize(context.Background()))
	assert.Equal(t, 2, restored.Len())
}

func TestAddMoviesEmptyIsError(t *testing.T) {
	eng := newTestEngine(t, &stubCatalog{movies: testMovies()}, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))

	_, err := eng.AddMovies(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoMovies)
}

func TestAddMoviesAppendsAndPersists(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	enc := testEncoder()
	enc.vectors["alien. genres: horror"] = unitVec(0.5)
	eng := newTestEngineAt(t, cachePath, &stubCatalog{movies: testMovies()}, enc)
	require.NoError(t, eng.Initialize(context.Background()))

	added, err := eng.AddMovies(context.Background(),
		[]domain.Movie{{ID: 3, Title: "Alien", Genres: []string{"Horror"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, eng.Len())

	ids, err := eng.Search(context.Background(), "space dreams", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2}, ids)

	// the cache artifact now contains the added movie
	restored := newTestEngineAt(t, cachePath, &stubCatalog{}, enc)
	require.NoError(t, restored.Initialize(context.Background()))
	assert.Equal(t, 3, restored.Len())
}

func TestSearchDropsMoviesWithoutIdentifier(t *testing.T) {
	enc := testEncoder()
	enc.vectors["nameless"] = unitVec(0.95)
	eng := newTestEngine(t, &stubCatalog{movies: testMovies()}, enc)
	require.NoError(t, eng.Initialize(context.Background()))

	_, err := eng.AddMovies(context.Background(), []domain.Movie{{ID: 0, Title: "Nameless"}})
	require.NoError(t, err)

	ids, err := eng.Search(context.Background(), "space dreams", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids, "the id-less movie must be dropped, not failed")
}

func TestReindexRebuildsFromCatalog(t *testing.T) {
	cat := &stubCatalog{movies: testMovies()}
	eng := newTestEngine(t, cat, testEncoder())
	require.NoError(t, eng.Initialize(context.Background()))
	require.Equal(t, 1, cat.calls)

	cat.movies = testMovies()[:1]
	require.NoError(t, eng.Reindex(context.Background()))
	assert.Equal(t, 2, cat.calls)
	assert.Equal(t, 1, eng.Len())
	assert.Equal(t, StateReady, eng.State())
}
