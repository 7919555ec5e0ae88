// Package cache persists a complete snapshot of the vector index to a
// single file so the encoder does not re-run on every process start.
// The artifact path is single-writer; concurrent processes sharing one
// path are unsupported.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"moviesearch/internal/domain"
	"moviesearch/internal/index"
)

// schemaVersion tags the artifact layout. Bumping it invalidates every
// existing artifact and forces a rebuild from the Catalog Store.
const schemaVersion = 1

// ErrMismatch reports an artifact written with a different schema version
// or encoder model. Callers rebuild the index fresh instead of loading it.
var ErrMismatch = errors.New("cache artifact does not match current schema or model")

type artifact struct {
	SchemaVersion int            `json:"schema_version"`
	Model         string         `json:"model"`
	Dimension     int            `json:"dimension"`
	Movies        []domain.Movie `json:"movies"`
	Documents     []string       `json:"documents"`
	Vectors       [][]float64    `json:"vectors"`
}

// Store reads and writes index snapshots at a fixed path, tagged with the
// encoder model they were built with.
type Store struct {
	path  string
	model string
}

func NewStore(path, model string) *Store {
	return &Store{path: path, model: model}
}

// Save writes the whole snapshot to the artifact path. The file is written
// to a temporary sibling first and renamed into place so readers never see
// a partial artifact.
func (s *Store) Save(snap index.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(artifact{
		SchemaVersion: schemaVersion,
		Model:         s.model,
		Dimension:     snap.Dimension,
		Movies:        snap.Movies,
		Documents:     snap.Documents,
		Vectors:       snap.Vectors,
	})
	if err != nil {
		return fmt.Errorf("marshal cache artifact: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache artifact: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cache artifact: %w", err)
	}
	return nil
}

// Load reads the artifact back into a snapshot. A missing file returns
// (nil, nil); a schema or model mismatch returns ErrMismatch.
func (s *Store) Load() (*index.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode cache artifact: %w", err)
	}
	if a.SchemaVersion != schemaVersion || a.Model != s.model {
		return nil, fmt.Errorf("%w: artifact schema=%d model=%q, want schema=%d model=%q",
			ErrMismatch, a.SchemaVersion, a.Model, schemaVersion, s.model)
	}
	return &index.Snapshot{
		Movies:    a.Movies,
		Documents: a.Documents,
		Vectors:   a.Vectors,
		Dimension: a.Dimension,
	}, nil
}

// Path returns the configured artifact location.
func (s *Store) Path() string { return s.path }
