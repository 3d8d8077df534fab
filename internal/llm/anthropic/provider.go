package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/neuralizard/internal/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	defaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
)

// Provider implements llm.Provider for Anthropic
type Provider struct {
	apiKey       string
	defaultModel string
	client       *http.Client
	baseURL      string
}

// NewProvider creates a new Anthropic provider
func NewProvider(apiKey, model, baseURL string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:       apiKey,
		defaultModel: model,
		client:       llm.NewHTTPClient(llm.ResponseHeaderTimeout),
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "anthropic"
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
		"claude-3-7-sonnet-latest",
		"claude-3-5-haiku-latest",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// streamEvent covers the SSE payloads the Messages API emits.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) request(prompt string, opts llm.Options, stream bool) anthropicRequest {
	return anthropicRequest{
		Model:       opts.ModelOr(p.defaultModel),
		MaxTokens:   opts.MaxTokensOr(llm.DefaultMaxTokens),
		Temperature: opts.TemperatureOr(llm.DefaultTemperature),
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Stream:      stream,
	}
}

func (p *Provider) headers() []llm.Header {
	return []llm.Header{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: apiVersion},
	}
}

// Complete runs a single-shot completion.
func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: anthropic", llm.ErrMissingCredential)
	}

	req := p.request(prompt, opts, false)
	start := time.Now()

	var resp anthropicResponse
	if err := llm.PostJSON(ctx, p.client, p.baseURL+"/messages", req, &resp, p.headers()...); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("no response from Anthropic")
	}

	return &llm.Result{
		Text:           strings.TrimSpace(sb.String()),
		Provider:       p.Name(),
		Model:          req.Model,
		PromptTokens:   resp.Usage.InputTokens,
		ResponseTokens: resp.Usage.OutputTokens,
		LatencyMs:      time.Since(start).Milliseconds(),
	}, nil
}

// RawStream yields text deltas as plain tokens.
func (p *Provider) RawStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[llm.RawEvent, error] {
	if !p.IsConfigured() {
		return llm.Failed(fmt.Errorf("%w: anthropic", llm.ErrMissingCredential))
	}

	return func(yield func(llm.RawEvent, error) bool) {
		resp, err := llm.PostStream(ctx, p.client, p.baseURL+"/messages", p.request(prompt, opts, true), p.headers()...)
		if err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("anthropic: %w", err))
			return
		}
		defer resp.Body.Close()

		for line, err := range llm.Lines(resp.Body) {
			if err != nil {
				yield(llm.RawEvent{}, err)
				return
			}
			payload, ok := llm.SSEData(line)
			if !ok {
				continue
			}

			var ev streamEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				continue
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
					if !yield(llm.Token(ev.Delta.Text), nil) {
						return
					}
				}
			case "message_stop":
				return
			case "error":
				yield(llm.RawEvent{}, fmt.Errorf("anthropic: %s: %s", ev.Error.Type, ev.Error.Message))
				return
			}
		}
	}
}
