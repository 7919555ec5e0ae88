package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"moviesearch/internal/domain"
)

// Client talks to the Catalog Store, the external system of record for
// movie metadata.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Deadlines come from the caller's context; the bulk catalog
		// fetch legitimately needs a long allowance.
		httpClient: &http.Client{},
	}
}

// catalogMovie mirrors the Catalog Store's row shape. Extra metadata
// fields in the payload are tolerated and ignored.
type catalogMovie struct {
	RowID    int64    `json:"row_id"`
	Title    string   `json:"title"`
	Tagline  string   `json:"tagline"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Keywords []string `json:"keywords"`
}

// AllMovies fetches the full catalog.
func (c *Client) AllMovies(ctx context.Context) ([]domain.Movie, error) {
	url := c.baseURL + "/movies/all_movies"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: status %d", resp.StatusCode)
	}

	var rows []catalogMovie
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	movies := make([]domain.Movie, len(rows))
	for i, r := range rows {
		movies[i] = domain.Movie{
			ID:       r.RowID,
			Title:    r.Title,
			Tagline:  r.Tagline,
			Overview: r.Overview,
			Genres:   r.Genres,
			Keywords: r.Keywords,
		}
	}
	return movies, nil
}
