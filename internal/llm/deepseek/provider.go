package deepseek

import (
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/openaicompat"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"
)

// NewProvider creates a new DeepSeek provider. DeepSeek streams are relayed
// as raw byte buffers.
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openaicompat.New(openaicompat.Config{
		Name:         "deepseek",
		BaseURL:      baseURL,
		APIKey:       apiKey,
		DefaultModel: model,
		Models:       []string{"deepseek-chat", "deepseek-reasoner", "deepseek-coder"},
		Bytes:        true,
	})
}
