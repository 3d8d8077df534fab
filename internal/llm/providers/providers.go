// Package providers wires every supported vendor adapter into an llm.Router.
package providers

import (
	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/anthropic"
	"github.com/Rrens/neuralizard/internal/llm/cohere"
	"github.com/Rrens/neuralizard/internal/llm/deepseek"
	"github.com/Rrens/neuralizard/internal/llm/gemini"
	"github.com/Rrens/neuralizard/internal/llm/mistral"
	"github.com/Rrens/neuralizard/internal/llm/ollama"
	"github.com/Rrens/neuralizard/internal/llm/openai"
	"github.com/Rrens/neuralizard/internal/llm/perplexity"
	"github.com/Rrens/neuralizard/internal/llm/xai"
)

// DefaultProvider is used when configuration names none.
const DefaultProvider = "openai"

// NewRouter registers every known provider with its configured credential.
// Providers without a credential stay known but unavailable. Every provider
// falls back to the configured temperature and token cap, and single-shot
// completions are bounded by the configured request timeout.
func NewRouter(cfg config.LLMConfig) *llm.Router {
	def := cfg.DefaultProvider
	if def == "" {
		def = DefaultProvider
	}
	r := llm.NewRouter(def)

	defaults := llm.Defaults{
		Temperature:    llm.Temperature(cfg.Temperature),
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: cfg.RequestTimeout,
	}

	keyed := []struct {
		name string
		pc   config.ProviderConfig
		new  func(apiKey, model, baseURL string) llm.Provider
	}{
		{"openai", cfg.OpenAI, openai.NewProvider},
		{"anthropic", cfg.Anthropic, anthropic.NewProvider},
		{"google", cfg.Google, gemini.NewProvider},
		{"mistral", cfg.Mistral, mistral.NewProvider},
		{"cohere", cfg.Cohere, cohere.NewProvider},
		{"xai", cfg.XAI, xai.NewProvider},
		{"deepseek", cfg.DeepSeek, deepseek.NewProvider},
		{"perplexity", cfg.Perplexity, perplexity.NewProvider},
	}
	for _, k := range keyed {
		pc, newFn := k.pc, k.new
		r.Register(k.name, pc.APIKey, func(key string) llm.Provider {
			return llm.WithDefaults(newFn(key, pc.Model, pc.BaseURL), defaults)
		})
	}

	oc := cfg.Ollama
	r.Register("ollama", oc.Host, func(host string) llm.Provider {
		return llm.WithDefaults(ollama.NewProvider(host, oc.DefaultModel), defaults)
	})

	return r
}
