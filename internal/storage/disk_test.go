package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "kotae.db")
	if err := os.WriteFile(db, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	idxDir := filepath.Join(dir, "index")
	if err := os.Mkdir(idxDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idxDir, "vectors.bin"), []byte("abcd"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idxDir, "metadata.json"), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("file: got %d bytes, want 10", got)
	}

	got, err = DiskUsageBytes(idxDir)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("dir: got %d bytes, want 6", got)
	}

	got, err = DiskUsageBytes(db, idxDir)
	if err != nil {
		t.Fatal(err)
	}
	if got != 16 {
		t.Errorf("file+dir: got %d bytes, want 16", got)
	}

	got, err = DiskUsageBytes("", filepath.Join(dir, "missing"), db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("empty+missing skipped: got %d bytes, want 10", got)
	}
}
