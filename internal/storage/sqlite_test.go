package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stacklet/kotae/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedQuestion(t *testing.T, store *SQLiteStore, title string) *models.Question {
	t.Helper()
	q := &models.Question{Title: title, Description: "desc", IsActive: true}
	if err := store.CreateQuestion(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestSQLiteStore_Questions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := seedQuestion(t, store, "How to reset a password?")
	if q.ID == 0 {
		t.Error("ID should be set")
	}
	if q.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetActiveQuestion(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "How to reset a password?" {
		t.Errorf("got %+v", got)
	}

	_, err = store.GetActiveQuestion(ctx, 9999)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_AnswerLifecycleEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var events []models.AnswerEvent
	store.AddAnswerListener(func(_ context.Context, ev models.AnswerEvent) {
		events = append(events, ev)
	})

	q := seedQuestion(t, store, "What is WAL mode?")

	a := &models.Answer{QuestionID: q.ID, Content: "Write-ahead logging.", IsActive: true}
	if err := store.CreateAnswer(ctx, a); err != nil {
		t.Fatal(err)
	}
	if a.ID == 0 {
		t.Error("ID should be set")
	}
	if len(events) != 1 || events[0].Type != models.AnswerCreated {
		t.Fatalf("expected created event, got %+v", events)
	}
	if events[0].SourceID != a.ID || events[0].Content != a.Content || events[0].ParentTitle != q.Title {
		t.Errorf("created event snapshot wrong: %+v", events[0])
	}

	if err := store.UpdateAnswerContent(ctx, a.ID, "WAL is write-ahead logging."); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[1].Type != models.AnswerContentUpdated {
		t.Fatalf("expected content_updated event, got %+v", events)
	}
	if events[1].Content != "WAL is write-ahead logging." {
		t.Errorf("updated event content wrong: %+v", events[1])
	}

	if err := store.SetAnswerActive(ctx, a.ID, false); err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 || events[2].Type != models.AnswerDeactivated {
		t.Fatalf("expected deactivated event, got %+v", events)
	}
	if events[2].Content != "" || events[2].ParentTitle != "" {
		t.Errorf("deactivated event should carry no snapshot: %+v", events[2])
	}

	if err := store.SetAnswerActive(ctx, a.ID, true); err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 || events[3].Type != models.AnswerReactivated {
		t.Fatalf("expected reactivated event, got %+v", events)
	}
	if events[3].Content != "WAL is write-ahead logging." || events[3].ParentTitle != q.Title {
		t.Errorf("reactivated event snapshot wrong: %+v", events[3])
	}

	if err := store.DeleteAnswer(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if len(events) != 5 || events[4].Type != models.AnswerDeleted {
		t.Fatalf("expected deleted event, got %+v", events)
	}
}

func TestSQLiteStore_InactiveAnswerEmitsNoEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var events []models.AnswerEvent
	store.AddAnswerListener(func(_ context.Context, ev models.AnswerEvent) {
		events = append(events, ev)
	})

	q := seedQuestion(t, store, "Q")
	a := &models.Answer{QuestionID: q.ID, Content: "draft", IsActive: false}
	if err := store.CreateAnswer(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateAnswerContent(ctx, a.ID, "still a draft"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetAnswerActive(ctx, a.ID, false); err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events for inactive answer, got %+v", events)
	}
}

func TestSQLiteStore_ListActiveAnswers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q1 := seedQuestion(t, store, "First question")
	q2 := seedQuestion(t, store, "Second question")

	a1 := &models.Answer{QuestionID: q1.ID, Content: "answer one", IsActive: true}
	a2 := &models.Answer{QuestionID: q2.ID, Content: "answer two", IsActive: true}
	a3 := &models.Answer{QuestionID: q2.ID, Content: "hidden", IsActive: false}
	for _, a := range []*models.Answer{a1, a2, a3} {
		if err := store.CreateAnswer(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.ListActiveAnswers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SourceID != a1.ID || records[0].ParentTitle != "First question" {
		t.Errorf("got %+v", records[0])
	}
	if records[1].SourceID != a2.ID || records[1].ParentTitle != "Second question" {
		t.Errorf("got %+v", records[1])
	}
}

func TestSQLiteStore_Counts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	q := seedQuestion(t, store, "Q")
	_ = store.CreateAnswer(ctx, &models.Answer{QuestionID: q.ID, Content: "A", IsActive: true})
	_ = store.CreateAnswer(ctx, &models.Answer{QuestionID: q.ID, Content: "B", IsActive: false})

	nq, err := store.CountQuestions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if nq != 1 {
		t.Errorf("expected 1 question, got %d", nq)
	}
	na, err := store.CountAnswers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if na != 2 {
		t.Errorf("expected 2 answers, got %d", na)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateAnswerContent(ctx, 42, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetAnswerActive(ctx, 42, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteAnswer(ctx, 42); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
