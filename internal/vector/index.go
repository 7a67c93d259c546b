package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length does not match the
// index dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrIntegrity is returned when the parallel vector and id artifacts
// desynchronize (on load or insert). It is fatal: the index must not be
// silently repaired.
var ErrIntegrity = errors.New("vector index integrity violation")

// VectorIndex defines append-only vector storage and top-k similarity search.
// Entries are never updated or deleted; insertion order is stable and breaks
// score ties in Search results.
type VectorIndex interface {
	// Insert appends one (vector, item id) entry.
	Insert(ctx context.Context, itemID string, vec []float32) error
	// Search returns up to k entries by descending inner product
	// (cosine similarity for unit vectors). An empty index yields an
	// empty result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	// Save writes the paired vector and item-id artifacts. Both files
	// describe the same entries in the same order.
	Save(vectorsPath, idsPath string) error
	// Load replaces the index contents from the paired artifacts.
	// A size mismatch between the two is ErrIntegrity.
	Load(vectorsPath, idsPath string) error
	Size() int
	Close() error
}

// Hit is a single raw search result.
type Hit struct {
	ItemID string
	Score  float64 // inner product; equals cosine similarity for unit vectors
}
