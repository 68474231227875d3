// Package storage provides the SQLite-backed system of record for questions
// and answers, and emits answer lifecycle events that drive index maintenance.
package storage

import (
	"context"

	"github.com/stacklet/kotae/internal/models"
)

// AnswerListener receives an answer lifecycle event after the corresponding
// write has committed. Listeners are invoked synchronously, in registration
// order, on the mutating call's goroutine.
type AnswerListener func(ctx context.Context, ev models.AnswerEvent)

// Store defines question and answer persistence plus lifecycle notification.
type Store interface {
	// Question operations
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetActiveQuestion(ctx context.Context, id int64) (*models.Question, error)

	// Answer operations
	CreateAnswer(ctx context.Context, a *models.Answer) error
	GetAnswer(ctx context.Context, id int64) (*models.Answer, error)
	UpdateAnswerContent(ctx context.Context, id int64, content string) error
	SetAnswerActive(ctx context.Context, id int64, active bool) error
	DeleteAnswer(ctx context.Context, id int64) error

	// ListActiveAnswers returns every active answer joined with its parent
	// question title, in id order. Used for full index rebuild.
	ListActiveAnswers(ctx context.Context) ([]models.IndexedRecord, error)

	// Stats
	CountQuestions(ctx context.Context) (int64, error)
	CountAnswers(ctx context.Context) (int64, error)

	// AddAnswerListener registers a listener for answer lifecycle events.
	AddAnswerListener(l AnswerListener)

	Close() error
}
