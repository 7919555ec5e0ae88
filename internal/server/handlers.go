package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"moviesearch/internal/domain"
	"moviesearch/internal/engine"
	"moviesearch/internal/logging"
)

const defaultTopK = 5

// SearchBackend is the handler-facing subset of the search engine.
type SearchBackend interface {
	Search(ctx context.Context, query string, topK int) ([]int64, error)
	AddMovies(ctx context.Context, movies []domain.Movie) (int, error)
	Reindex(ctx context.Context) error
	State() engine.State
	Len() int
}

// Handlers holds the HTTP handlers for the search API.
type Handlers struct {
	svc      SearchBackend
	validate *validator.Validate
}

func NewHandlers(svc SearchBackend) *Handlers {
	return &Handlers{svc: svc, validate: validator.New()}
}

// HandleSearch serves GET /search?query=<string>&top_k=<int>.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'query'")
		return
	}

	topK := defaultTopK
	if s := r.URL.Query().Get("top_k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid top_k")
			return
		}
		topK = n
	}

	ids, err := h.svc.Search(r.Context(), query, topK)
	if err != nil {
		writeServiceError(w, r, err, "search failed")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": ids})
}

// addMoviePayload is the wire shape of one movie in the add body. The
// identifier is mandatory; all text fields are optional.
type addMoviePayload struct {
	ID       int64    `json:"id" validate:"required"`
	Title    string   `json:"title"`
	Tagline  string   `json:"tagline"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Keywords []string `json:"keywords"`
}

// HandleAddMovies serves POST /search/add_movie with a JSON array body.
func (h *Handlers) HandleAddMovies(w http.ResponseWriter, r *http.Request) {
	var payload []addMoviePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "no movies to add")
		return
	}

	movies := make([]domain.Movie, len(payload))
	for i, p := range payload {
		if err := h.validate.Struct(p); err != nil {
			writeError(w, http.StatusBadRequest, "movie at index "+strconv.Itoa(i)+" is missing a valid id")
			return
		}
		movies[i] = domain.Movie{
			ID:       p.ID,
			Title:    p.Title,
			Tagline:  p.Tagline,
			Overview: p.Overview,
			Genres:   p.Genres,
			Keywords: p.Keywords,
		}
	}

	added, err := h.svc.AddMovies(r.Context(), movies)
	if err != nil {
		writeServiceError(w, r, err, "add movies failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

// HandleStatus serves GET /search/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  h.svc.State().String(),
		"movies": h.svc.Len(),
	})
}

// HandleReindex serves POST /search/reindex. The rebuild runs in the
// background; progress is visible through /search/status.
func (h *Handlers) HandleReindex(w http.ResponseWriter, r *http.Request) {
	log := logging.Ctx(r.Context())
	go func() {
		if err := h.svc.Reindex(context.Background()); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reindex started"})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, engine.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "service warming up")
	case errors.Is(err, engine.ErrNoMovies):
		writeError(w, http.StatusBadRequest, "no movies to add")
	default:
		l := logging.Ctx(r.Context())
		l.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
