//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "errors"

// FAISSIndex stub type when built without FAISS (see faiss.go for the real implementation).
type FAISSIndex struct{}

// NewFAISSIndex returns an error when built without FAISS support.
func NewFAISSIndex(_ int) (VectorIndex, error) {
	return nil, errors.New("FAISS index requires building with -tags=faiss and the FAISS library")
}
