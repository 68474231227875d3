// Package answerer builds grounded prompts from retrieved answer context and
// delegates completion to a generation backend. It never writes to the index
// or the system of record.
package answerer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stacklet/kotae/internal/generation"
	"github.com/stacklet/kotae/internal/models"
)

// Retriever returns ranked answer contexts for a free-text query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, threshold float64) ([]models.RetrievedContext, error)
}

// QuestionLookup resolves a question id to an active question.
type QuestionLookup interface {
	GetActiveQuestion(ctx context.Context, id int64) (*models.Question, error)
}

// Service answers free-text questions with retrieval grounding and drafts
// structured answers for stored questions.
type Service struct {
	retriever Retriever
	questions QuestionLookup
	completer generation.Completer
	topK      int
	threshold float64
	logger    *zap.Logger // optional
}

// NewService creates an answerer. topK and threshold are the retrieval
// defaults used by Answer. logger may be nil.
func NewService(retriever Retriever, questions QuestionLookup, completer generation.Completer, topK int, threshold float64, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		questions: questions,
		completer: completer,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Answer retrieves grounding context for query, builds the grounded prompt,
// and returns the trimmed completion. When no context passes the relevance
// threshold the prompt carries an explicit no-data marker, so the model
// states that no stored answer exists before answering generally.
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	contexts, err := s.retriever.Retrieve(ctx, query, s.topK, s.threshold)
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Debug("answering with retrieved context",
			zap.String("query", query),
			zap.Int("contexts", len(contexts)),
		)
	}
	prompt := BuildAnswerPrompt(contexts, query)
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// DraftAnswer generates a structured draft answer for the stored question
// with the given id. Returns models.ErrNotFound when the id does not resolve
// to an active question. No retrieval step is involved.
func (s *Service) DraftAnswer(ctx context.Context, questionID int64) (string, error) {
	question, err := s.questions.GetActiveQuestion(ctx, questionID)
	if err != nil {
		return "", err
	}
	prompt := BuildDraftPrompt(question)
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
