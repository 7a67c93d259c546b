// Brute-force inner product search, the default backend at the dataset
// sizes this service targets.
package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FlatIndex is an exhaustive inner-product index over parallel id and vector
// slices. One RWMutex serializes mutation against search, and the paired
// appends in Insert happen under a single critical section so the two slices
// cannot desynchronize in length.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates a flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Insert appends one entry. The vector is copied.
func (f *FlatIndex) Insert(ctx context.Context, itemID string, vec []float32) error {
	if len(vec) != f.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) != len(f.vectors) {
		return fmt.Errorf("%w: %d ids vs %d vectors before insert", ErrIntegrity, len(f.ids), len(f.vectors))
	}
	v := make([]float32, f.dimensions)
	copy(v, vec)
	f.ids = append(f.ids, itemID)
	f.vectors = append(f.vectors, v)
	return nil
}

// Search returns the top-k entries by inner product in descending order.
// Ties are broken by insertion order (earliest first) so results are
// reproducible.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	hits := make([]*Hit, len(f.ids))
	for i, vec := range f.vectors {
		hits[i] = &Hit{ItemID: f.ids[i], Score: InnerProduct(query, vec)}
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Save writes the paired artifacts: a binary vector file (dimension, count,
// then count*dimension float32 little-endian) and a plain-text item-id list,
// one id per line, in insertion order. Parent directories are created.
func (f *FlatIndex) Save(vectorsPath, idsPath string) error {
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

	vf, err := os.Create(vectorsPath)
	if err != nil {
		return fmt.Errorf("create vectors file: %w", err)
	}
	defer vf.Close()
	if err := binary.Write(vf, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(vf, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range f.vectors {
		if _, err := vf.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
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

// Load replaces the index contents from the paired artifacts. When neither
// file exists the index is left empty (fresh start). A missing half, an
// entry-count mismatch between the two files, or a dimension mismatch is
// ErrIntegrity and must not be served from.
func (f *FlatIndex) Load(vectorsPath, idsPath string) error {
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

	vectors, dim, err := readVectorsFile(vectorsPath)
	if err != nil {
		return err
	}
	if dim != f.dimensions {
		return fmt.Errorf("%w: file has dimension %d, index expects %d", ErrIntegrity, dim, f.dimensions)
	}
	ids, err := readIDsFile(idsPath)
	if err != nil {
		return err
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids vs %d vectors on load", ErrIntegrity, len(ids), len(vectors))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	return nil
}

func readVectorsFile(path string) ([][]float32, int, error) {
	vf, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open vectors file: %w", err)
	}
	defer vf.Close()
	var dim, n uint32
	if err := binary.Read(vf, binary.LittleEndian, &dim); err != nil {
		return nil, 0, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(vf, binary.LittleEndian, &n); err != nil {
		return nil, 0, fmt.Errorf("read count: %w", err)
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(vf, buf); err != nil {
			return nil, 0, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	return vectors, int(dim), nil
}

func readIDsFile(path string) ([]string, error) {
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

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of entries in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
