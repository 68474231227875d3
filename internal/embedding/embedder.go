// Package embedding provides text embedding for answer content, with
// OpenAI-compatible and local ONNX backends plus an LRU cache.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text. For a given
// backend and model version the output is deterministic per input text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
