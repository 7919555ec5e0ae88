package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// New builds the HTTP server exposing the search API.
func New(port string, svc SearchBackend) *http.Server {
	h := NewHandlers(svc)

	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/search", h.HandleSearch)
	r.Post("/search/add_movie", h.HandleAddMovies)
	r.Get("/search/status", h.HandleStatus)
	r.Post("/search/reindex", h.HandleReindex)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
