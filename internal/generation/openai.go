package generation

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stacklet/kotae/internal/models"
)

// Config holds settings for the OpenAI-compatible completion client.
type Config struct {
	APIKey      string
	BaseURL     string // e.g. https://openrouter.ai/api/v1 for OpenRouter
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAICompleter calls a chat-completion API with a single user message.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAICompleter creates a completion client from cfg.
func NewOpenAICompleter(cfg Config) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends prompt as a single user message and returns the first
// choice's content. Backend failures are reported as ProviderError; there is
// no retry here.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", &models.ProviderError{Provider: "generation", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &models.ProviderError{Provider: "generation", Err: fmt.Errorf("empty response")}
	}
	return resp.Choices[0].Message.Content, nil
}
