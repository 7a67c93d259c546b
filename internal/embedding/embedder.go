// Package embedding provides image and text embedding clients and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrInvalidImage is returned when an image source cannot be fetched or decoded.
var ErrInvalidImage = errors.New("invalid image source")

// Embedder produces unit-normalized vector embeddings for images and text.
// Image and text embeddings share one vector space of Dimensions() length.
type Embedder interface {
	EmbedImage(ctx context.Context, source string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
