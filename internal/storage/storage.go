// Package storage defines the persistence interface for item metadata.
package storage

import (
	"context"
	"errors"

	"github.com/otoshimono/otoshimono/internal/models"
)

// ErrNotFound is returned when an item id is not in the store.
var ErrNotFound = errors.New("item not found")

// Store defines item metadata persistence operations.
type Store interface {
	// PutItem persists an item. Idempotent: repeating the same item id
	// neither errors nor creates a second record.
	PutItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	// ListItems returns items newest first. reportType filters to
	// "lost" or "found"; empty means both.
	ListItems(ctx context.Context, reportType string, offset, limit int) ([]*models.Item, error)
	CountItems(ctx context.Context) (int64, error)
	Close() error
}
