// Package vector provides a flat vector index with positional addressing and
// brute-force L2 search. Positions are dense slot numbers, aligned 1:1 with
// the metadata store; removal shifts later entries down, so positions are not
// stable across removals.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/stacklet/kotae/internal/models"
)

// headerSize is the length of the blob header: dimension and count, both uint32.
const headerSize int64 = 8

// Hit is a single nearest-neighbor result. Distance is squared L2.
type Hit struct {
	Position int
	Distance float64
}

// Flat is a flat index of fixed-dimension float32 vectors supporting append,
// in-place replace, positional removal, and exhaustive k-NN search.
// Reads may run concurrently with a single writer.
type Flat struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlat creates an empty flat index with the given dimension.
func NewFlat(dimensions int) (*Flat, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Flat{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Dimensions returns the vector dimension of the index.
func (f *Flat) Dimensions() int {
	return f.dimensions
}

// Len returns the number of vectors in the index.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Append adds a vector at the end of the sequence and returns its position.
func (f *Flat) Append(vec []float32) (int, error) {
	if len(vec) != f.dimensions {
		return 0, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
	}
	cp := make([]float32, f.dimensions)
	copy(cp, vec)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, cp)
	return len(f.vectors) - 1, nil
}

// ReplaceAt overwrites the vector at position. The position does not change.
func (f *Flat) ReplaceAt(position int, vec []float32) error {
	if len(vec) != f.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
	}
	cp := make([]float32, f.dimensions)
	copy(cp, vec)
	f.mu.Lock()
	defer f.mu.Unlock()
	if position < 0 || position >= len(f.vectors) {
		return fmt.Errorf("position %d out of range [0,%d)", position, len(f.vectors))
	}
	f.vectors[position] = cp
	return nil
}

// RemoveAt removes the vector at position; later vectors shift down one slot.
func (f *Flat) RemoveAt(position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if position < 0 || position >= len(f.vectors) {
		return fmt.Errorf("position %d out of range [0,%d)", position, len(f.vectors))
	}
	f.vectors = append(f.vectors[:position], f.vectors[position+1:]...)
	return nil
}

// Search returns up to k nearest vectors by squared L2 distance, ascending,
// ties broken by ascending position. Returns fewer than k when the index
// holds fewer vectors and an empty slice when it is empty.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(f.vectors))
	for i, vec := range f.vectors {
		hits[i] = Hit{Position: i, Distance: squaredL2(query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k:k], nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

// Save persists the index to path atomically (write temp file, then rename),
// so a crash mid-write never leaves a half-written blob. Format: dimensions
// (uint32), count (uint32), then count vectors of dimensions*4 bytes each,
// little-endian.
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := f.writeTo(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func (f *Flat) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range f.vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. The
// stored dimension must match the configured one; a mismatch or a truncated
// blob reports models.ErrCorruptIndex. A missing file leaves the index
// unchanged and returns nil.
func (f *Flat) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	var dim, n uint32
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("%w: read dimensions: %v", models.ErrCorruptIndex, err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("%w: dimension mismatch: file has %d, index expects %d", models.ErrCorruptIndex, dim, f.dimensions)
	}
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: read count: %v", models.ErrCorruptIndex, err)
	}
	// Validate the count against the file size before allocating, so a
	// corrupt header cannot trigger a huge preallocation.
	if fi, statErr := file.Stat(); statErr == nil {
		want := headerSize + int64(n)*int64(f.dimensions)*4
		if fi.Size() < want {
			return fmt.Errorf("%w: count %d needs %d bytes, file has %d", models.ErrCorruptIndex, n, want, fi.Size())
		}
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(file, buf); err != nil {
			return fmt.Errorf("%w: read vector %d: %v", models.ErrCorruptIndex, i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	f.mu.Lock()
	f.vectors = vectors
	f.mu.Unlock()
	return nil
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
