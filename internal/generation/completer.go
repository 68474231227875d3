// Package generation provides text completion via an OpenAI-compatible chat
// API for grounding retrieved answer context into a final response.
package generation

import "context"

// Completer produces completion text for a prompt. Implementations cross a
// network boundary; callers own timeouts via ctx and any retry policy.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
