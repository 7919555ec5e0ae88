package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMovies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movies/all_movies", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// extra metadata fields must be tolerated and ignored
		_, _ = w.Write([]byte(`[
			{"row_id":1,"title":"Inception","tagline":"","overview":"Dreams.",
			 "genres":["Sci-Fi"],"keywords":["dream"],"tmdb_id":27205,"budget":160000000},
			{"row_id":2,"title":"Titanic","genres":["Romance"],"poster_path":"/t.jpg"}
		]`))
	}))
	defer srv.Close()

	movies, err := NewClient(srv.URL + "/").AllMovies(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, int64(1), movies[0].ID)
	assert.Equal(t, "Inception", movies[0].Title)
	assert.Equal(t, []string{"dream"}, movies[0].Keywords)
	assert.Equal(t, int64(2), movies[1].ID)
	assert.Empty(t, movies[1].Keywords)
}

func TestAllMoviesNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AllMovies(context.Background())
	assert.Error(t, err)
}

func TestAllMoviesUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("http://127.0.0.1:1").AllMovies(ctx)
	assert.Error(t, err)
}
