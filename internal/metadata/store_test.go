package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stacklet/kotae/internal/models"
)

func rec(id int64, content, title string) models.IndexedRecord {
	return models.IndexedRecord{SourceID: id, Content: content, ParentTitle: title}
}

func TestRecords_AppendFind(t *testing.T) {
	r := NewRecords()
	if pos := r.Append(rec(1, "use a for loop", "Python loops")); pos != 0 {
		t.Errorf("first position: got %d", pos)
	}
	if pos := r.Append(rec(2, "use map", "Go maps")); pos != 1 {
		t.Errorf("second position: got %d", pos)
	}

	pos, ok := r.FindBySourceID(2)
	if !ok || pos != 1 {
		t.Errorf("FindBySourceID(2)=%d,%v", pos, ok)
	}
	if _, ok := r.FindBySourceID(42); ok {
		t.Error("found nonexistent source id")
	}
}

func TestRecords_UpdateAtKeepsPosition(t *testing.T) {
	r := NewRecords()
	r.Append(rec(1, "old", "title"))
	r.Append(rec(2, "other", "title2"))

	if err := r.UpdateAt(0, rec(1, "new", "title")); err != nil {
		t.Fatal(err)
	}
	got, _ := r.At(0)
	if got.Content != "new" || got.SourceID != 1 {
		t.Errorf("updated record: %+v", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len=%d", r.Len())
	}
}

func TestRecords_RemoveAtShifts(t *testing.T) {
	r := NewRecords()
	r.Append(rec(1, "a", "t1"))
	r.Append(rec(2, "b", "t2"))
	r.Append(rec(3, "c", "t3"))

	if err := r.RemoveAt(0); err != nil {
		t.Fatal(err)
	}
	pos, ok := r.FindBySourceID(3)
	if !ok || pos != 1 {
		t.Errorf("record 3 should shift to position 1, got %d,%v", pos, ok)
	}
	if err := r.RemoveAt(5); err == nil {
		t.Error("expected error for out-of-range position")
	}
}

func TestRecords_InsertAt(t *testing.T) {
	r := NewRecords()
	r.Append(rec(1, "a", "t1"))
	r.Append(rec(3, "c", "t3"))

	if err := r.InsertAt(1, rec(2, "b", "t2")); err != nil {
		t.Fatal(err)
	}
	got, _ := r.At(1)
	if got.SourceID != 2 {
		t.Errorf("inserted record: %+v", got)
	}
	got, _ = r.At(2)
	if got.SourceID != 3 {
		t.Errorf("shifted record: %+v", got)
	}
}

func TestRecords_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answers_meta.json")

	r := NewRecords()
	r.Append(rec(1, "use a for loop", "Python loops"))
	r.Append(rec(7, "use goroutines", "Go concurrency"))
	if err := r.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}

	loaded := NewRecords()
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded Len=%d", loaded.Len())
	}
	got, _ := loaded.At(1)
	if got.SourceID != 7 || got.ParentTitle != "Go concurrency" {
		t.Errorf("loaded record: %+v", got)
	}
}

func TestRecords_LoadMissingFile(t *testing.T) {
	r := NewRecords()
	if err := r.Load(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len=%d", r.Len())
	}
}

func TestRecords_LoadGarbageIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answers_meta.json")
	if err := os.WriteFile(path, []byte("not json{"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRecords()
	if err := r.Load(path); !errors.Is(err, models.ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestRecords_ReplaceAll(t *testing.T) {
	r := NewRecords()
	r.Append(rec(1, "a", "t"))
	r.ReplaceAll([]models.IndexedRecord{rec(9, "z", "t9")})
	if r.Len() != 1 {
		t.Fatalf("Len=%d", r.Len())
	}
	pos, ok := r.FindBySourceID(9)
	if !ok || pos != 0 {
		t.Errorf("FindBySourceID(9)=%d,%v", pos, ok)
	}
}
