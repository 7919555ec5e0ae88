package embedding

import "context"

// Encoder maps text into fixed-dimension embedding vectors. Implementations
// must encode batches in a single call; per-text round trips do not scale
// to the bulk catalog load.
type Encoder interface {
	Model() string
	EncodeBatch(ctx context.Context, texts []string) ([][]float64, error)
	Encode(ctx context.Context, text string) ([]float64, error)
}
