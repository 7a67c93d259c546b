package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// RemoteTagger talks to the vision service over HTTP: POST /analyze with
// {"image_source": ...} returns an Annotation.
type RemoteTagger struct {
	baseURL string
	client  *http.Client
}

// NewRemoteTagger creates a client for the vision service at baseURL.
func NewRemoteTagger(baseURL string) (*RemoteTagger, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vision service URL is required")
	}
	return &RemoteTagger{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

type analyzeRequest struct {
	ImageSource string `json:"image_source"`
}

// Analyze returns labels, colors, and detected text for the image at source.
func (t *RemoteTagger) Analyze(ctx context.Context, imageSource string) (*Annotation, error) {
	body, err := json.Marshal(analyzeRequest{ImageSource: imageSource})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision service returned %d", resp.StatusCode)
	}
	var ann Annotation
	if err := json.NewDecoder(resp.Body).Decode(&ann); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	return &ann, nil
}

// Close is a no-op for RemoteTagger.
func (t *RemoteTagger) Close() error {
	return nil
}

// NopTagger returns an empty annotation for every image. Used when no vision
// service is configured.
type NopTagger struct{}

// Analyze returns an empty annotation.
func (NopTagger) Analyze(ctx context.Context, imageSource string) (*Annotation, error) {
	return &Annotation{}, nil
}

// Close is a no-op.
func (NopTagger) Close() error {
	return nil
}
