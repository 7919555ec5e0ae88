package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"moviesearch/internal/cache"
	"moviesearch/internal/document"
	"moviesearch/internal/domain"
	"moviesearch/internal/index"
	"moviesearch/internal/logging"
)

// State is the engine lifecycle: Uninitialized -> Loading -> Ready.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

var (
	// ErrNotReady reports a request issued before initialization finished.
	ErrNotReady = errors.New("search engine is not ready")
	// ErrNoMovies reports an add request with an empty movie list.
	ErrNoMovies = errors.New("no movies to add")
)

var _ domain.SearchService = (*Engine)(nil)

// Engine orchestrates the index lifecycle: initial load from cache or the
// Catalog Store, runtime adds, and queries. It is the only owner of the
// vector index and the cache artifact.
type Engine struct {
	encoder domain.Encoder
	catalog domain.CatalogClient
	cache   *cache.Store
	idx     *index.Index
	log     zerolog.Logger

	bulkTimeout  time.Duration
	queryTimeout time.Duration

	// mu serializes state transitions and mutations
	// (compose+encode+append+persist). Searches read the state atomically
	// and take only the index's read lock, so they proceed during encoding
	// and persistence I/O.
	mu    sync.Mutex
	state atomic.Int32
}

// Options configures an Engine.
type Options struct {
	Encoder domain.Encoder
	Catalog domain.CatalogClient
	Cache   *cache.Store
	// BulkTimeout bounds the catalog fetch and the initial bulk encode.
	BulkTimeout time.Duration
	// QueryTimeout bounds interactive query encoding.
	QueryTimeout time.Duration
}

func New(opts Options) *Engine {
	if opts.BulkTimeout == 0 {
		opts.BulkTimeout = 10 * time.Minute
	}
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 15 * time.Second
	}
	return &Engine{
		encoder:      opts.Encoder,
		catalog:      opts.Catalog,
		cache:        opts.Cache,
		idx:          index.New(),
		log:          logging.With("engine"),
		bulkTimeout:  opts.BulkTimeout,
		queryTimeout: opts.QueryTimeout,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Len returns the number of indexed movies.
func (e *Engine) Len() int { return e.idx.Len() }

// Initialize loads the index from the cache artifact, or on a miss builds
// it from the full catalog and persists it. It is idempotent: once the
// engine is ready, further calls return nil without work. A forced rebuild
// is a separate operation (Reindex). On failure the engine returns to the
// uninitialized state so the caller may retry.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.State() {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateLoading:
		e.mu.Unlock()
		return ErrNotReady
	}
	e.setState(StateLoading)
	e.mu.Unlock()

	err := e.load(ctx)

	if err != nil {
		e.setState(StateUninitialized)
	} else {
		e.setState(StateReady)
	}
	return err
}

// Reindex discards the in-memory index and rebuilds it from the Catalog
// Store, then rewrites the cache artifact.
func (e *Engine) Reindex(ctx context.Context) error {
	e.mu.Lock()
	if e.State() == StateLoading {
		e.mu.Unlock()
		return ErrNotReady
	}
	e.setState(StateLoading)
	e.mu.Unlock()

	e.idx.Clear()
	err := e.buildFromCatalog(ctx)

	if err != nil {
		e.setState(StateUninitialized)
	} else {
		e.setState(StateReady)
	}
	return err
}

func (e *Engine) load(ctx context.Context) error {
	snap, err := e.cache.Load()
	if err != nil {
		// A malformed or mismatched artifact degrades to a fresh build.
		e.log.Warn().Err(err).Msg("cache load failed, rebuilding from catalog")
	}
	if snap != nil {
		if err := e.idx.Restore(*snap); err != nil {
			// A decodable but inconsistent artifact must not brick startup;
			// the rebuild below also rewrites it.
			e.log.Warn().Err(err).Msg("cached index is inconsistent, rebuilding from catalog")
		} else {
			e.log.Info().Int("movies", e.idx.Len()).Str("path", e.cache.Path()).Msg("index loaded from cache")
			return nil
		}
	}
	return e.buildFromCatalog(ctx)
}

func (e *Engine) buildFromCatalog(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.bulkTimeout)
	defer cancel()

	movies, err := e.catalog.AllMovies(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	e.log.Info().Int("movies", len(movies)).Msg("catalog fetched, encoding")

	if err := e.idx.Append(ctx, movies, e.encoder); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	e.persist()
	e.log.Info().Int("movies", e.idx.Len()).Msg("index built from catalog")
	return nil
}

// AddMovies appends new movies to the index and persists the result. An
// empty list is a client error at this layer, unlike the index's internal
// no-op tolerance.
func (e *Engine) AddMovies(ctx context.Context, movies []domain.Movie) (int, error) {
	if len(movies) == 0 {
		return 0, ErrNoMovies
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() != StateReady {
		return 0, ErrNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, e.bulkTimeout)
	defer cancel()
	if err := e.idx.Append(ctx, movies, e.encoder); err != nil {
		return 0, fmt.Errorf("append movies: %w", err)
	}
	e.persist()
	e.log.Info().Int("added", len(movies)).Int("total", e.idx.Len()).Msg("movies added")
	return len(movies), nil
}

// Query returns the topK movies ranked by similarity to the query text.
func (e *Engine) Query(ctx context.Context, query string, topK int) ([]domain.ScoredMovie, error) {
	if e.State() != StateReady {
		return nil, ErrNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	vec, err := e.encoder.Encode(ctx, document.Normalize(query))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	results := e.idx.Search(vec, topK)
	e.log.Debug().Str("query", query).Int("results", len(results)).Msg("search executed")
	return results, nil
}

// Search runs Query and reduces the matches to movie identifiers in rank
// order. Records without an identifier are skipped with a warning.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]int64, error) {
	results, err := e.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if r.Movie.ID == 0 {
			e.log.Warn().Str("title", r.Movie.Title).Msg("matched movie has no identifier, skipping")
			continue
		}
		ids = append(ids, r.Movie.ID)
	}
	return ids, nil
}

// persist snapshots the index and rewrites the cache artifact. A failed
// write is a warning; the service keeps serving from memory.
func (e *Engine) persist() {
	if err := e.cache.Save(e.idx.Snapshot()); err != nil {
		e.log.Warn().Err(err).Msg("cache save failed, serving from memory only")
		return
	}
	e.log.Debug().Str("path", e.cache.Path()).Msg("cache saved")
}
