package mistral

import (
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/openaicompat"
)

const (
	defaultBaseURL = "https://api.mistral.ai/v1"
	defaultModel   = "mistral-large-latest"
)

// NewProvider creates a new Mistral provider
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		Name:         "mistral",
		BaseURL:      baseURL,
		APIKey:       apiKey,
		DefaultModel: model,
		Models: []string{
			"mistral-large-latest",
			"mistral-medium-latest",
			"mistral-small-latest",
			"codestral-latest",
		},
		Bytes: true,
	})
}
