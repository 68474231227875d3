// Package retrieval embeds free-text queries and returns the nearest indexed
// answers that pass a relevance threshold, for use as generation context.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/stacklet/kotae/internal/embedding"
	"github.com/stacklet/kotae/internal/models"
	"github.com/stacklet/kotae/internal/ragindex"
	"github.com/stacklet/kotae/pkg/utils"
)

// DefaultTopK is the number of nearest answers fetched when the caller does
// not specify k.
const DefaultTopK = 4

// Service performs read-only similarity retrieval against the answer index.
type Service struct {
	embedder embedding.Embedder
	index    *ragindex.Index
	logger   *zap.Logger // optional
}

// NewService creates a retrieval service. logger may be nil.
func NewService(embedder embedding.Embedder, index *ragindex.Index, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds query, finds the k nearest indexed answers, and returns
// those whose similarity meets threshold, in ascending distance order.
// Similarity is 1 - squared L2 distance: a relative ranking signal rather
// than a calibrated score, so thresholds are defined against that scale.
// k <= 0 selects DefaultTopK. An empty result is not an error.
func (s *Service) Retrieve(ctx context.Context, query string, k int, threshold float64) ([]models.RetrievedContext, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.index.Search(queryVec, k)
	if err != nil {
		return nil, err
	}
	contexts := make([]models.RetrievedContext, 0, len(hits))
	for _, h := range hits {
		similarity := 1 - h.Distance
		if similarity < threshold {
			continue
		}
		contexts = append(contexts, models.RetrievedContext{
			SourceID:    h.Record.SourceID,
			Content:     h.Record.Content,
			ParentTitle: h.Record.ParentTitle,
			Distance:    h.Distance,
			Similarity:  similarity,
		})
	}
	if s.logger != nil {
		s.logger.Debug("retrieval",
			zap.String("query", utils.Truncate(query, 80)),
			zap.Int("k", k),
			zap.Float64("threshold", threshold),
			zap.Int("candidates", len(hits)),
			zap.Int("passed", len(contexts)),
		)
	}
	return contexts, nil
}
