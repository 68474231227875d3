// Package metadata provides the ordered record store that is positionally
// aligned 1:1 with the flat vector index: metadata position i describes the
// answer whose embedding occupies vector slot i.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stacklet/kotae/internal/models"
)

// Records is an ordered sequence of indexed answer records with positional
// mutation and source-id lookup. Reads may run concurrently with a single
// writer.
type Records struct {
	records []models.IndexedRecord
	mu      sync.RWMutex
}

// NewRecords creates an empty record store.
func NewRecords() *Records {
	return &Records{records: make([]models.IndexedRecord, 0)}
}

// Len returns the number of records.
func (r *Records) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// At returns the record at position.
func (r *Records) At(position int) (models.IndexedRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if position < 0 || position >= len(r.records) {
		return models.IndexedRecord{}, fmt.Errorf("position %d out of range [0,%d)", position, len(r.records))
	}
	return r.records[position], nil
}

// Append adds a record at the end and returns its position.
func (r *Records) Append(rec models.IndexedRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return len(r.records) - 1
}

// InsertAt inserts a record at position, shifting later records up one slot.
func (r *Records) InsertAt(position int, rec models.IndexedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if position < 0 || position > len(r.records) {
		return fmt.Errorf("position %d out of range [0,%d]", position, len(r.records))
	}
	r.records = append(r.records, models.IndexedRecord{})
	copy(r.records[position+1:], r.records[position:])
	r.records[position] = rec
	return nil
}

// UpdateAt overwrites the record at position.
func (r *Records) UpdateAt(position int, rec models.IndexedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if position < 0 || position >= len(r.records) {
		return fmt.Errorf("position %d out of range [0,%d)", position, len(r.records))
	}
	r.records[position] = rec
	return nil
}

// RemoveAt removes the record at position; later records shift down one slot.
func (r *Records) RemoveAt(position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if position < 0 || position >= len(r.records) {
		return fmt.Errorf("position %d out of range [0,%d)", position, len(r.records))
	}
	r.records = append(r.records[:position], r.records[position+1:]...)
	return nil
}

// FindBySourceID returns the position of the record with the given source id,
// or false when no such record exists.
func (r *Records) FindBySourceID(sourceID int64) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, rec := range r.records {
		if rec.SourceID == sourceID {
			return i, true
		}
	}
	return 0, false
}

// ReplaceAll swaps in a new record sequence, discarding the previous contents.
// Used by full rebuild.
func (r *Records) ReplaceAll(records []models.IndexedRecord) {
	cp := make([]models.IndexedRecord, len(records))
	copy(cp, records)
	r.mu.Lock()
	r.records = cp
	r.mu.Unlock()
}

// Save persists the records to path as JSON, atomically (write temp file,
// then rename).
func (r *Records) Save(path string) error {
	r.mu.RLock()
	data, err := json.Marshal(r.records)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename metadata file: %w", err)
	}
	return nil
}

// Load reads the records from path, replacing the in-memory contents. An
// unreadable blob reports models.ErrCorruptIndex. A missing file leaves the
// store unchanged and returns nil.
func (r *Records) Load(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read metadata file: %w", err)
	}
	var records []models.IndexedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: parse metadata: %v", models.ErrCorruptIndex, err)
	}
	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
	return nil
}
