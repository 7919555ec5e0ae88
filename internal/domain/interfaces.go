package domain

import "context"

// Movie is a denormalized snapshot of a catalog entry. The index never
// mutates it; the Catalog Store remains the source of truth.
type Movie struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title,omitempty"`
	Tagline  string   `json:"tagline,omitempty"`
	Overview string   `json:"overview,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// ScoredMovie is a matched movie with its cosine similarity to the query.
type ScoredMovie struct {
	Movie Movie
	Score float64
}

// Encoder maps text into fixed-dimension embedding vectors. The dimension
// is fixed for the lifetime of an index instance.
type Encoder interface {
	Model() string
	EncodeBatch(ctx context.Context, texts []string) ([][]float64, error)
	Encode(ctx context.Context, text string) ([]float64, error)
}

// CatalogClient fetches the full movie catalog from the external store.
type CatalogClient interface {
	AllMovies(ctx context.Context) ([]Movie, error)
}

// SearchService defines the operations exposed at the network boundary.
type SearchService interface {
	Initialize(ctx context.Context) error
	AddMovies(ctx context.Context, movies []Movie) (int, error)
	Search(ctx context.Context, query string, topK int) ([]int64, error)
	Query(ctx context.Context, query string, topK int) ([]ScoredMovie, error)
}
