package cohere

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

const (
	defaultBaseURL = "https://api.cohere.ai/v1"
	defaultModel   = "command-r-plus"
)

// Provider implements llm.Provider for Cohere's chat endpoint
type Provider struct {
	apiKey       string
	defaultModel string
	client       *http.Client
	baseURL      string
}

// NewProvider creates a new Cohere provider
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

func (p *Provider) Name() string { return "cohere" }

func (p *Provider) AvailableModels() []string {
	return []string{"command-r-plus", "command-r", "command-a-03-2025"}
}

func (p *Provider) DefaultModel() string { return p.defaultModel }

func (p *Provider) IsConfigured() bool { return p.apiKey != "" }

type chatRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

type chatResponse struct {
	Text string `json:"text"`
	Meta struct {
		BilledUnits struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"billed_units"`
	} `json:"meta"`
}

// streamEvent is one NDJSON line of a streamed chat.
type streamEvent struct {
	EventType    string `json:"event_type"`
	Text         string `json:"text"`
	IsFinished   bool   `json:"is_finished"`
	FinishReason string `json:"finish_reason"`
}

func (p *Provider) request(prompt string, opts llm.Options, stream bool) chatRequest {
	return chatRequest{
		Model:       opts.ModelOr(p.defaultModel),
		Message:     prompt,
		Temperature: opts.TemperatureOr(llm.DefaultTemperature),
		MaxTokens:   opts.MaxTokensOr(llm.DefaultMaxTokens),
		Stream:      stream,
	}
}

func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: cohere", llm.ErrMissingCredential)
	}

	req := p.request(prompt, opts, false)
	start := time.Now()

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.client, p.baseURL+"/chat", req, &resp, llm.Bearer(p.apiKey)); err != nil {
		return nil, fmt.Errorf("cohere: %w", err)
	}

	return &llm.Result{
		Text:           strings.TrimSpace(resp.Text),
		Provider:       p.Name(),
		Model:          req.Model,
		PromptTokens:   resp.Meta.BilledUnits.InputTokens,
		ResponseTokens: resp.Meta.BilledUnits.OutputTokens,
		LatencyMs:      time.Since(start).Milliseconds(),
	}, nil
}

// RawStream yields text-generation events as plain tokens.
func (p *Provider) RawStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[llm.RawEvent, error] {
	if !p.IsConfigured() {
		return llm.Failed(fmt.Errorf("%w: cohere", llm.ErrMissingCredential))
	}

	return func(yield func(llm.RawEvent, error) bool) {
		resp, err := llm.PostStream(ctx, p.client, p.baseURL+"/chat", p.request(prompt, opts, true), llm.Bearer(p.apiKey))
		if err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("cohere: %w", err))
			return
		}
		defer resp.Body.Close()

		for line, err := range llm.Lines(resp.Body) {
			if err != nil {
				yield(llm.RawEvent{}, err)
				return
			}
			var ev streamEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				continue
			}
			switch ev.EventType {
			case "text-generation":
				if ev.Text != "" && !yield(llm.Token(ev.Text), nil) {
					return
				}
			case "stream-end":
				if ev.FinishReason == "ERROR" {
					yield(llm.RawEvent{}, fmt.Errorf("cohere: stream ended with error"))
				}
				return
			}
		}
	}
}
