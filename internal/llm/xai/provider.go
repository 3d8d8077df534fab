package xai

import (
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/openaicompat"
)

const (
	defaultBaseURL = "https://api.x.ai/v1"
	defaultModel   = "grok-4-latest"
	systemPrompt   = "You are a helpful assistant."
)

// NewProvider creates a new xAI Grok provider
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		Name:         "xai",
		BaseURL:      baseURL,
		APIKey:       apiKey,
		DefaultModel: model,
		Models:       []string{"grok-4-latest", "grok-3", "grok-3-mini"},
		SystemPrompt: systemPrompt,
		Batched:      true,
	})
}
