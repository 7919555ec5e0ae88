package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"moviesearch/internal/document"
	"moviesearch/internal/domain"
)

// Index is an in-memory brute-force vector index over the movie corpus.
// It keeps three parallel collections in lockstep: movie records, composed
// documents, and embedding vectors. It is append-only at runtime.
type Index struct {
	mu        sync.RWMutex
	movies    []domain.Movie
	documents []string
	vectors   [][]float64
	dimension int
}

// Snapshot is a copy of the full index state, safe to use outside the lock.
type Snapshot struct {
	Movies    []domain.Movie
	Documents []string
	Vectors   [][]float64
	Dimension int
}

func New() *Index { return &Index{} }

// Append composes documents for the given movies, encodes them as one
// batch, and appends rows to all three collections. An empty input is a
// silent no-op.
func (i *Index) Append(ctx context.Context, movies []domain.Movie, enc domain.Encoder) error {
	if len(movies) == 0 {
		return nil
	}
	docs := make([]string, len(movies))
	for j, m := range movies {
		docs[j] = document.Compose(m)
	}
	vecs, err := enc.EncodeBatch(ctx, docs)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if len(vecs) != len(movies) {
		return fmt.Errorf("encoder returned %d vectors for %d documents", len(vecs), len(movies))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	dim := i.dimension
	for _, v := range vecs {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), dim)
		}
	}
	i.dimension = dim
	i.movies = append(i.movies, movies...)
	i.documents = append(i.documents, docs...)
	i.vectors = append(i.vectors, vecs...)
	return nil
}

// Search returns the topK movies closest to the query vector by cosine
// similarity, in strictly descending order. Ties keep insertion order.
// topK is clamped to the index size; an empty index yields no results.
func (i *Index) Search(queryVec []float64, topK int) []domain.ScoredMovie {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.vectors) == 0 || topK <= 0 {
		return nil
	}
	scored := make([]domain.ScoredMovie, len(i.vectors))
	for j, v := range i.vectors {
		scored[j] = domain.ScoredMovie{Movie: i.movies[j], Score: cosineSimilarity(queryVec, v)}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if topK > len(scored) {
		topK = len(scored)
	}
	out := make([]domain.ScoredMovie, topK)
	copy(out, scored[:topK])
	return out
}

// Len returns the number of indexed movies.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.movies)
}

// Dimension returns the embedding dimension, or 0 while the index is empty.
func (i *Index) Dimension() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dimension
}

// Snapshot copies the full state so persistence can run outside the lock.
func (i *Index) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s := Snapshot{
		Movies:    make([]domain.Movie, len(i.movies)),
		Documents: make([]string, len(i.documents)),
		Vectors:   make([][]float64, len(i.vectors)),
		Dimension: i.dimension,
	}
	copy(s.Movies, i.movies)
	copy(s.Documents, i.documents)
	copy(s.Vectors, i.vectors)
	return s
}

// Restore replaces the index state wholesale from a snapshot.
func (i *Index) Restore(s Snapshot) error {
	if len(s.Movies) != len(s.Documents) || len(s.Movies) != len(s.Vectors) {
		return fmt.Errorf("snapshot arrays out of lockstep: %d movies, %d documents, %d vectors",
			len(s.Movies), len(s.Documents), len(s.Vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.movies = s.Movies
	i.documents = s.Documents
	i.vectors = s.Vectors
	i.dimension = s.Dimension
	return nil
}

// Clear drops all entries, returning the index to its initial empty state.
func (i *Index) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.movies = nil
	i.documents = nil
	i.vectors = nil
	i.dimension = 0
}

// cosineSimilarity returns dot(a,b)/(|a||b|). A zero-norm operand yields 0
// rather than NaN.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
