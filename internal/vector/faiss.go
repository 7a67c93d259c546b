//go:build faiss && cgo
// +build faiss,cgo

// FAISS-backed index for larger deployments.
package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatIP (inner product over unit vectors,
// equivalent to cosine similarity). Because the index is append-only, FAISS
// positions map directly to the parallel item-id slice: position i holds the
// id of the i-th inserted entry.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	ids        []string
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS IndexFlatIP with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}

	return &FAISSIndex{
		index:      index,
		dimensions: dimensions,
		ids:        make([]string, 0),
	}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Insert appends one entry.
func (f *FAISSIndex) Insert(ctx context.Context, itemID string, vec []float32) error {
	if len(vec) != f.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if int(C.faiss_Index_ntotal(f.index)) != len(f.ids) {
		return fmt.Errorf("%w: %d ids vs %d FAISS entries before insert",
			ErrIntegrity, len(f.ids), int(C.faiss_Index_ntotal(f.index)))
	}

	ret := C.faiss_Index_add(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&vec[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vector to FAISS index: %s", faissLastError())
	}
	f.ids = append(f.ids, itemID)
	return nil
}

// Search returns the top-k entries by inner product. FAISS returns results
// in descending score order with lower positions first on ties, which
// matches the insertion-order tie-break contract.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)

	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	hits := make([]*Hit, 0, k)
	for i := 0; i < k; i++ {
		label := labels[i]
		if label < 0 || int(label) >= len(f.ids) {
			continue
		}
		hits = append(hits, &Hit{
			ItemID: f.ids[label],
			Score:  float64(distances[i]),
		})
	}
	return hits, nil
}

// Save writes the FAISS index to vectorsPath and the item-id list to idsPath.
func (f *FAISSIndex) Save(vectorsPath, idsPath string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if vectorsPath == "" || idsPath == "" {
		return nil
	}
	for _, p := range []string{vectorsPath, idsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}

	cPath := C.CString(vectorsPath)
	defer C.free(unsafe.Pointer(cPath))

	ret := C.faiss_write_index_fname(f.index, cPath)
	if ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}

	idf, err := os.Create(idsPath)
	if err != nil {
		return fmt.Errorf("create ids file: %w", err)
	}
	defer idf.Close()
	w := bufio.NewWriter(idf)
	for _, id := range f.ids {
		if _, err := w.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
	}
	return w.Flush()
}

// Load reads the FAISS index and the item-id list. When neither file exists
// the index is unchanged. A missing half or an entry-count mismatch between
// the two artifacts is ErrIntegrity.
func (f *FAISSIndex) Load(vectorsPath, idsPath string) error {
	if vectorsPath == "" || idsPath == "" {
		return nil
	}
	_, vErr := os.Stat(vectorsPath)
	_, iErr := os.Stat(idsPath)
	if os.IsNotExist(vErr) && os.IsNotExist(iErr) {
		return nil
	}
	if os.IsNotExist(vErr) || os.IsNotExist(iErr) {
		return fmt.Errorf("%w: one of %s / %s is missing", ErrIntegrity, vectorsPath, idsPath)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cPath := C.CString(vectorsPath)
	defer C.free(unsafe.Pointer(cPath))

	var newIndex *C.FaissIndex
	ret := C.faiss_read_index_fname(cPath, 0, &newIndex)
	if ret != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}

	ids, err := readFAISSIDsFile(idsPath)
	if err != nil {
		C.faiss_Index_free(newIndex)
		return err
	}
	if int(C.faiss_Index_ntotal(newIndex)) != len(ids) {
		n := int(C.faiss_Index_ntotal(newIndex))
		C.faiss_Index_free(newIndex)
		return fmt.Errorf("%w: %d ids vs %d vectors on load", ErrIntegrity, len(ids), n)
	}

	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = newIndex
	f.ids = ids
	return nil
}

func readFAISSIDsFile(path string) ([]string, error) {
	idf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer idf.Close()
	var ids []string
	scanner := bufio.NewScanner(idf)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ids file: %w", err)
	}
	return ids, nil
}

// Size returns the number of entries in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
