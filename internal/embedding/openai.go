package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stacklet/kotae/internal/models"
)

// OpenAIEmbedder produces embeddings via an OpenAI-compatible embeddings API.
// BaseURL may point at any compatible gateway (e.g. OpenRouter).
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder for the given model. When model is
// empty, text-embedding-3-small is used. dimensions must match what the model
// emits; it is what the flat index is sized against.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

// EmbedBatch embeds texts in a single API call, splitting into chunks of at
// most maxBatch inputs (the API limit).
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const maxBatch = 2048
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, &models.ProviderError{Provider: "embedding", Err: err}
		}
		if len(resp.Data) != end-start {
			return nil, &models.ProviderError{
				Provider: "embedding",
				Err:      fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data)),
			}
		}
		for _, d := range resp.Data {
			if len(d.Embedding) != e.dimensions {
				return nil, &models.ProviderError{
					Provider: "embedding",
					Err:      fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), e.dimensions),
				}
			}
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
