// Package keyword provides keyword search over reported items for browsing.
package keyword

import (
	"context"

	"github.com/otoshimono/otoshimono/internal/models"
)

// ItemResult is a single keyword search hit.
type ItemResult struct {
	ItemID string
	Score  float64
}

// ItemIndex defines keyword indexing and search over item metadata.
// It is a browse aid, separate from vector matching.
type ItemIndex interface {
	Index(ctx context.Context, item *models.Item) error
	Search(ctx context.Context, query string, limit int) ([]*ItemResult, error)
	Close() error
}
