package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/neuralizard/internal/llm"
)

// Provider implements llm.Provider for Ollama. Its credential is the host URL.
type Provider struct {
	host         string
	defaultModel string
	client       *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, defaultModel string) llm.Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &Provider{
		host:         strings.TrimRight(host, "/"),
		defaultModel: defaultModel,
		client:       llm.NewHTTPClient(5 * time.Minute),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"llama3",
		"llama3.1",
		"llama3.2",
		"mistral",
		"mixtral",
		"phi3",
		"qwen2",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has a host to talk to
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *Provider) request(prompt string, opts llm.Options, stream bool) ollamaRequest {
	return ollamaRequest{
		Model:  opts.ModelOr(p.defaultModel),
		Prompt: prompt,
		Stream: stream,
		Options: map[string]any{
			"temperature": opts.TemperatureOr(llm.DefaultTemperature),
			"num_predict": opts.MaxTokensOr(llm.DefaultMaxTokens),
		},
	}
}

// Complete runs a single-shot generation.
func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: ollama", llm.ErrMissingCredential)
	}

	req := p.request(prompt, opts, false)
	start := time.Now()

	var resp ollamaResponse
	if err := llm.PostJSON(ctx, p.client, p.host+"/api/generate", req, &resp); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}

	return &llm.Result{
		Text:           strings.TrimSpace(resp.Response),
		Provider:       p.Name(),
		Model:          req.Model,
		PromptTokens:   resp.PromptEvalCount,
		ResponseTokens: resp.EvalCount,
		LatencyMs:      time.Since(start).Milliseconds(),
	}, nil
}

// RawStream yields each NDJSON response fragment as a plain token.
func (p *Provider) RawStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[llm.RawEvent, error] {
	if !p.IsConfigured() {
		return llm.Failed(fmt.Errorf("%w: ollama", llm.ErrMissingCredential))
	}

	return func(yield func(llm.RawEvent, error) bool) {
		resp, err := llm.PostStream(ctx, p.client, p.host+"/api/generate", p.request(prompt, opts, true))
		if err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("ollama: %w", err))
			return
		}
		defer resp.Body.Close()

		for line, err := range llm.Lines(resp.Body) {
			if err != nil {
				yield(llm.RawEvent{}, err)
				return
			}
			var chunk ollamaResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Error != "" {
				yield(llm.RawEvent{}, fmt.Errorf("ollama: %s", chunk.Error))
				return
			}
			if chunk.Response != "" && !yield(llm.Token(chunk.Response), nil) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}
}
