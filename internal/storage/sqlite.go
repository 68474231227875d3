package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stacklet/kotae/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.RWMutex
	listeners []AnswerListener
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_questions_is_active ON questions(is_active);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);
	CREATE INDEX IF NOT EXISTS idx_answers_is_active ON answers(is_active);
	`
	_, err := db.Exec(schema)
	return err
}

// AddAnswerListener registers a listener for answer lifecycle events.
func (s *SQLiteStore) AddAnswerListener(l AnswerListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *SQLiteStore) notify(ctx context.Context, ev models.AnswerEvent) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, ev)
	}
}

// CreateQuestion inserts a question and fills in its generated ID.
func (s *SQLiteStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (title, description, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.Title, q.Description, q.IsActive, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return err
	}
	q.ID, err = result.LastInsertId()
	return err
}

// GetActiveQuestion returns an active question by ID. Inactive or missing
// questions yield models.ErrNotFound.
func (s *SQLiteStore) GetActiveQuestion(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, is_active, created_at, updated_at
		 FROM questions WHERE id = ? AND is_active = 1`, id,
	).Scan(&q.ID, &q.Title, &q.Description, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: question %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateAnswer inserts an answer and fills in its generated ID. If the answer
// is active, an AnswerCreated event is emitted after the insert.
func (s *SQLiteStore) CreateAnswer(ctx context.Context, a *models.Answer) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (question_id, content, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.QuestionID, a.Content, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	a.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	if a.IsActive {
		title, err := s.questionTitle(ctx, a.QuestionID)
		if err != nil {
			return err
		}
		s.notify(ctx, models.AnswerEvent{
			Type:        models.AnswerCreated,
			SourceID:    a.ID,
			Content:     a.Content,
			ParentTitle: title,
		})
	}
	return nil
}

// GetAnswer returns an answer by ID, active or not.
func (s *SQLiteStore) GetAnswer(ctx context.Context, id int64) (*models.Answer, error) {
	var a models.Answer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, content, is_active, created_at, updated_at
		 FROM answers WHERE id = ?`, id,
	).Scan(&a.ID, &a.QuestionID, &a.Content, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: answer %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAnswerContent replaces an answer's content. If the answer is active,
// an AnswerContentUpdated event is emitted after the update.
func (s *SQLiteStore) UpdateAnswerContent(ctx context.Context, id int64, content string) error {
	a, err := s.GetAnswer(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE answers SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now(), id,
	)
	if err != nil {
		return err
	}

	if a.IsActive {
		title, err := s.questionTitle(ctx, a.QuestionID)
		if err != nil {
			return err
		}
		s.notify(ctx, models.AnswerEvent{
			Type:        models.AnswerContentUpdated,
			SourceID:    id,
			Content:     content,
			ParentTitle: title,
		})
	}
	return nil
}

// SetAnswerActive toggles an answer's active flag. A transition to active
// emits AnswerReactivated with a content snapshot; a transition to inactive
// emits AnswerDeactivated. Setting the current value is a no-op.
func (s *SQLiteStore) SetAnswerActive(ctx context.Context, id int64, active bool) error {
	a, err := s.GetAnswer(ctx, id)
	if err != nil {
		return err
	}
	if a.IsActive == active {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE answers SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now(), id,
	)
	if err != nil {
		return err
	}

	if active {
		title, err := s.questionTitle(ctx, a.QuestionID)
		if err != nil {
			return err
		}
		s.notify(ctx, models.AnswerEvent{
			Type:        models.AnswerReactivated,
			SourceID:    id,
			Content:     a.Content,
			ParentTitle: title,
		})
	} else {
		s.notify(ctx, models.AnswerEvent{
			Type:     models.AnswerDeactivated,
			SourceID: id,
		})
	}
	return nil
}

// DeleteAnswer removes an answer by ID and emits AnswerDeleted.
func (s *SQLiteStore) DeleteAnswer(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: answer %d", models.ErrNotFound, id)
	}

	s.notify(ctx, models.AnswerEvent{
		Type:     models.AnswerDeleted,
		SourceID: id,
	})
	return nil
}

// ListActiveAnswers returns every active answer joined with its parent
// question title, ordered by answer ID.
func (s *SQLiteStore) ListActiveAnswers(ctx context.Context) ([]models.IndexedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.content, q.title
		 FROM answers a JOIN questions q ON a.question_id = q.id
		 WHERE a.is_active = 1 ORDER BY a.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.IndexedRecord
	for rows.Next() {
		var rec models.IndexedRecord
		if err := rows.Scan(&rec.SourceID, &rec.Content, &rec.ParentTitle); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountQuestions returns the total number of questions.
func (s *SQLiteStore) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// CountAnswers returns the total number of answers.
func (s *SQLiteStore) CountAnswers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) questionTitle(ctx context.Context, questionID int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM questions WHERE id = ?`, questionID,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: question %d", models.ErrNotFound, questionID)
	}
	return title, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
