package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/otoshimono/otoshimono/pkg/utils"
)

const defaultRequestTimeout = 30 * time.Second

// RemoteEmbedder talks to the CLIP encoding service over HTTP. The service
// exposes POST /encode/image and POST /encode/text, both returning
// {"embedding": [...]} with vectors from the same CLIP space.
type RemoteEmbedder struct {
	baseURL    string
	dimensions int
	client     *http.Client
	cache      *EmbeddingCache
}

// NewRemoteEmbedder creates a client for the encoding service at baseURL.
// cacheSize > 0 enables an LRU cache over both endpoints.
func NewRemoteEmbedder(baseURL string, dimensions, cacheSize int) (*RemoteEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding service URL is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	e := &RemoteEmbedder{
		baseURL:    baseURL,
		dimensions: dimensions,
		client:     &http.Client{Timeout: defaultRequestTimeout},
	}
	if cacheSize > 0 {
		e.cache = NewEmbeddingCache(cacheSize)
	}
	return e, nil
}

type encodeImageRequest struct {
	ImageSource string `json:"image_source"`
}

type encodeTextRequest struct {
	Text string `json:"text"`
}

type encodeResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedImage returns the embedding of the image at source (URL or data URI).
// An undecodable or unreachable image surfaces as ErrInvalidImage.
func (e *RemoteEmbedder) EmbedImage(ctx context.Context, source string) ([]float32, error) {
	key := "image\x00" + source
	if e.cache != nil {
		if emb, ok := e.cache.Get(key); ok {
			return emb, nil
		}
	}
	emb, err := e.encode(ctx, "/encode/image", encodeImageRequest{ImageSource: source}, true)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Put(key, emb)
	}
	return emb, nil
}

// EmbedText returns the embedding of text.
func (e *RemoteEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := "text\x00" + text
	if e.cache != nil {
		if emb, ok := e.cache.Get(key); ok {
			return emb, nil
		}
	}
	emb, err := e.encode(ctx, "/encode/text", encodeTextRequest{Text: text}, false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Put(key, emb)
	}
	return emb, nil
}

func (e *RemoteEmbedder) encode(ctx context.Context, path string, payload interface{}, image bool) ([]float32, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	var out encodeResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(data, &out)
		// The encoding service reports an undecodable image as a client error.
		if image && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity) {
			if out.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrInvalidImage, out.Error)
			}
			return nil, ErrInvalidImage
		}
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, out.Error)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embedding service returned %d dimensions, expected %d", len(out.Embedding), e.dimensions)
	}
	utils.NormalizeL2(out.Embedding)
	return out.Embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for RemoteEmbedder.
func (e *RemoteEmbedder) Close() error {
	return nil
}
