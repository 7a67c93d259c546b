// Package vision extracts labels, colors, and detected text from item images.
// Annotations are item metadata only; they play no part in matching.
package vision

import "context"

// Annotation holds what the vision service saw in an image.
type Annotation struct {
	Labels       []string `json:"labels,omitempty"`
	Colors       []string `json:"colors,omitempty"`
	DetectedText string   `json:"detected_text,omitempty"`
}

// Tagger analyzes an item image.
type Tagger interface {
	Analyze(ctx context.Context, imageSource string) (*Annotation, error)
	Close() error
}
