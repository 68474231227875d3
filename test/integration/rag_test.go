// Package integration provides end-to-end tests (requires real storage and index artifacts).
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stacklet/kotae/internal/answerer"
	"github.com/stacklet/kotae/internal/embedding"
	"github.com/stacklet/kotae/internal/models"
	"github.com/stacklet/kotae/internal/ragindex"
	"github.com/stacklet/kotae/internal/retrieval"
	"github.com/stacklet/kotae/internal/storage"
)

// promptEchoCompleter returns the prompt it was given so assertions can check
// what context reached the generation provider.
type promptEchoCompleter struct{}

func (promptEchoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

func TestIntegration_AnswerLifecycleToRetrieval(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "kotae.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewMockEmbedder(16)
	defer embedder.Close()

	indexPath := filepath.Join(dir, "vectors.bin")
	metaPath := filepath.Join(dir, "metadata.json")
	idx, err := ragindex.Open(embedder, indexPath, metaPath)
	if err != nil {
		t.Fatal(err)
	}
	store.AddAnswerListener(func(ctx context.Context, ev models.AnswerEvent) {
		if err := idx.HandleEvent(ctx, ev); err != nil {
			t.Errorf("index maintenance failed for %s: %v", ev.Type, err)
		}
	})

	ret := retrieval.NewService(embedder, idx, nil)
	ans := answerer.NewService(ret, store, promptEchoCompleter{}, 4, 0.0, nil)

	// Create question and answer; the listener should index it.
	q := &models.Question{Title: "Python loops", IsActive: true}
	if err := store.CreateQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	a := &models.Answer{QuestionID: q.ID, Content: "Use a for loop", IsActive: true}
	if err := store.CreateAnswer(ctx, a); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 {
		t.Fatalf("index size after create: got %d, want 1", idx.Len())
	}

	// An exact-content query retrieves the answer with similarity 1.
	results, err := ret.Retrieve(ctx, "Use a for loop", 4, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].SourceID != a.ID {
		t.Fatalf("retrieve: got %+v", results)
	}
	if results[0].ParentTitle != "Python loops" {
		t.Errorf("parent title: got %q", results[0].ParentTitle)
	}

	// The grounded prompt carries the stored Q/A pair.
	prompt, err := ans.Answer(ctx, "Use a for loop")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Python loops") || !strings.Contains(prompt, "Use a for loop") {
		t.Errorf("prompt missing context pair: %q", prompt)
	}

	// Deactivation removes the answer from retrieval.
	if err := store.SetAnswerActive(ctx, a.ID, false); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Fatalf("index size after deactivate: got %d, want 0", idx.Len())
	}
	results, err = ret.Retrieve(ctx, "Use a for loop", 4, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deactivated answer retrieved: %+v", results)
	}

	// Reactivation brings it back, and the pair survives a reopen.
	if err := store.SetAnswerActive(ctx, a.ID, true); err != nil {
		t.Fatal(err)
	}
	reopened, err := ragindex.Open(embedder, indexPath, metaPath)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened index size: got %d, want 1", reopened.Len())
	}
}

func TestIntegration_RebuildMatchesEventDrivenState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "kotae.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewMockEmbedder(16)
	defer embedder.Close()

	idx, err := ragindex.Open(embedder,
		filepath.Join(dir, "vectors.bin"), filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	store.AddAnswerListener(func(ctx context.Context, ev models.AnswerEvent) {
		_ = idx.HandleEvent(ctx, ev)
	})

	q := &models.Question{Title: "Q", IsActive: true}
	if err := store.CreateQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	var answers []*models.Answer
	for _, content := range []string{"first", "second", "third"} {
		a := &models.Answer{QuestionID: q.ID, Content: content, IsActive: true}
		if err := store.CreateAnswer(ctx, a); err != nil {
			t.Fatal(err)
		}
		answers = append(answers, a)
	}
	if err := store.DeleteAnswer(ctx, answers[1].ID); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("index size after delete: got %d, want 2", idx.Len())
	}

	// A full rebuild from the database reproduces the same indexed set.
	active, err := store.ListActiveAnswers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Rebuild(ctx, active); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("index size after rebuild: got %d, want 2", idx.Len())
	}

	ret := retrieval.NewService(embedder, idx, nil)
	results, err := ret.Retrieve(ctx, "third", 4, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].SourceID != answers[2].ID {
		t.Fatalf("retrieve after rebuild: got %+v", results)
	}
}
