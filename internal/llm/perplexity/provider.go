package perplexity

import (
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/openaicompat"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar-pro"
)

// allowedModels is the set Perplexity accepts; anything else falls back to the default.
var allowedModels = []string{
	"sonar-pro",
	"sonar-small-online",
	"sonar-medium-online",
	"sonar-small-chat",
	"sonar-medium-chat",
}

// NewProvider creates a new Perplexity provider
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		Name:           "perplexity",
		BaseURL:        baseURL,
		APIKey:         apiKey,
		DefaultModel:   model,
		Models:         allowedModels,
		StrictModels:   true,
		MaxTemperature: 2,
	})
}
