package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stacklet/kotae/internal/models"
	"github.com/stacklet/kotae/internal/storage"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	answer, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	s.logger.Debug("draft request", zap.Int64("question_id", id))
	draft, err := s.answerer.DraftAnswer(r.Context(), id)
	if err != nil {
		s.logger.Error("draft failed", zap.Int64("question_id", id), zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"question_id": id, "draft": draft})
}

type retrieveRequest struct {
	Query     string   `json:"query"`
	K         int      `json:"k"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	threshold := s.config.Retrieval.RelevanceThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	results, err := s.retriever.Retrieve(r.Context(), req.Query, req.K, threshold)
	if err != nil {
		s.logger.Error("retrieve failed", zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	if results == nil {
		results = []models.RetrievedContext{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	answers, err := s.store.ListActiveAnswers(ctx)
	if err != nil {
		s.logger.Error("rebuild: list active answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.index.Rebuild(ctx, answers); err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "rebuilt",
		"indexed": len(answers),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionCount, err := s.store.CountQuestions(ctx)
	if err != nil {
		s.logger.Error("status: count questions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	answerCount, err := s.store.CountAnswers(ctx)
	if err != nil {
		s.logger.Error("status: count answers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"questions":  questionCount,
		"answers":    answerCount,
		"index_size": s.index.Len(),
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"top_k":                s.config.Retrieval.TopK,
			"relevance_threshold":  s.config.Retrieval.RelevanceThreshold,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
		s.config.Storage.MetadataPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondDomainError maps domain errors to HTTP status codes: missing entities
// to 404, upstream provider failures to 502, everything else to 500.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var provErr *models.ProviderError
	switch {
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &provErr):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
