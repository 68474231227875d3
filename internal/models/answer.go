// Package models defines core data structures and the shared error taxonomy
// for the answer index and retrieval pipeline.
package models

import "time"

// Question is a question in the system of record.
type Question struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Answer is an answer in the system of record. Only active answers are indexed.
type Answer struct {
	ID         int64     `json:"id" db:"id"`
	QuestionID int64     `json:"question_id" db:"question_id"`
	Content    string    `json:"content" db:"content"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// AnswerEventType identifies an answer lifecycle transition.
type AnswerEventType string

const (
	AnswerCreated        AnswerEventType = "created"
	AnswerContentUpdated AnswerEventType = "content_updated"
	AnswerDeactivated    AnswerEventType = "deactivated"
	AnswerReactivated    AnswerEventType = "reactivated"
	AnswerDeleted        AnswerEventType = "deleted"
)

// AnswerEvent is emitted by the system of record after an answer mutation
// commits. Content and ParentTitle are snapshots at event time; they are
// empty for Deactivated and Deleted events.
type AnswerEvent struct {
	Type        AnswerEventType
	SourceID    int64
	Content     string
	ParentTitle string
}
