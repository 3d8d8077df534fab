package openai

import (
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/openaicompat"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// NewProvider creates a new OpenAI provider
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		Name:         "openai",
		BaseURL:      baseURL,
		APIKey:       apiKey,
		DefaultModel: model,
		Models: []string{
			"gpt-4o-mini",
			"gpt-4o",
			"gpt-4.1",
			"gpt-4.1-mini",
			"gpt-4-turbo",
		},
	})
}
