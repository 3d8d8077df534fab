// Package openaicompat implements the chat-completions wire protocol shared by
// OpenAI and the vendors that mirror it.
package openaicompat

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Rrens/neuralizard/internal/llm"
)

// Config describes one OpenAI-compatible vendor.
type Config struct {
	Name         string
	BaseURL      string
	APIKey       string
	DefaultModel string
	Models       []string

	// SystemPrompt, when set, is sent ahead of the user message.
	SystemPrompt string

	// Bytes makes RawStream emit undecoded byte buffers instead of frame text.
	Bytes bool

	// Batched makes RawStream emit one frame per network read holding every
	// data line that read completed.
	Batched bool

	// StrictModels replaces unknown models with DefaultModel.
	StrictModels bool

	// MaxTemperature clamps the temperature to [0, MaxTemperature] when positive.
	MaxTemperature float64

	Client *http.Client
}

// Provider is an llm.Provider speaking /chat/completions.
type Provider struct {
	cfg Config
}

// New creates a provider from cfg.
func New(cfg Config) *Provider {
	if cfg.Client == nil {
		cfg.Client = llm.NewHTTPClient(llm.ResponseHeaderTimeout)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{cfg: cfg}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.cfg.Name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.cfg.Models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.cfg.DefaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.cfg.APIKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Provider) model(opts llm.Options) string {
	m := strings.TrimSpace(opts.ModelOr(p.cfg.DefaultModel))
	if p.cfg.StrictModels && !slices.Contains(p.cfg.Models, m) {
		return p.cfg.DefaultModel
	}
	return m
}

func (p *Provider) temperature(opts llm.Options) float64 {
	t := opts.TemperatureOr(llm.DefaultTemperature)
	if p.cfg.MaxTemperature > 0 {
		t = max(0, min(p.cfg.MaxTemperature, t))
	}
	return t
}

func (p *Provider) request(prompt string, opts llm.Options, stream bool) chatRequest {
	var messages []chatMessage
	if p.cfg.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.cfg.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	return chatRequest{
		Model:       p.model(opts),
		Messages:    messages,
		Temperature: p.temperature(opts),
		MaxTokens:   opts.MaxTokensOr(llm.DefaultMaxTokens),
		Stream:      stream,
	}
}

// Complete runs a single-shot completion.
func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", llm.ErrMissingCredential, p.cfg.Name)
	}

	req := p.request(prompt, opts, false)
	start := time.Now()

	var resp chatResponse
	if err := llm.PostJSON(ctx, p.cfg.Client, p.cfg.BaseURL+"/chat/completions", req, &resp, llm.Bearer(p.cfg.APIKey)); err != nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.cfg.Name)
	}

	return &llm.Result{
		Text:           strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider:       p.cfg.Name,
		Model:          req.Model,
		PromptTokens:   resp.Usage.PromptTokens,
		ResponseTokens: resp.Usage.CompletionTokens,
		LatencyMs:      time.Since(start).Milliseconds(),
	}, nil
}

// RawStream yields one "data: " frame per SSE data line, or per network read
// when Batched.
func (p *Provider) RawStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[llm.RawEvent, error] {
	if !p.IsConfigured() {
		return llm.Failed(fmt.Errorf("%w: %s", llm.ErrMissingCredential, p.cfg.Name))
	}

	return func(yield func(llm.RawEvent, error) bool) {
		resp, err := llm.PostStream(ctx, p.cfg.Client, p.cfg.BaseURL+"/chat/completions",
			p.request(prompt, opts, true), llm.Bearer(p.cfg.APIKey))
		if err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("%s: %w", p.cfg.Name, err))
			return
		}
		defer resp.Body.Close()

		if p.cfg.Batched {
			for batch, err := range llm.Batches(resp.Body) {
				if err != nil {
					yield(llm.RawEvent{}, err)
					return
				}
				frames := dataFrames(batch)
				if frames == "" {
					continue
				}
				if !yield(llm.Frame(frames), nil) {
					return
				}
			}
			return
		}

		for line, err := range llm.Lines(resp.Body) {
			if err != nil {
				yield(llm.RawEvent{}, err)
				return
			}
			payload, ok := llm.SSEData(line)
			if !ok || len(payload) == 0 {
				continue
			}
			if !yield(p.event(payload), nil) {
				return
			}
		}
	}
}

func (p *Provider) event(payload []byte) llm.RawEvent {
	if p.cfg.Bytes {
		return llm.Bytes(append([]byte("data: "), payload...))
	}
	return llm.Frame("data: " + string(payload))
}

// dataFrames keeps the SSE data lines of batch as concatenated "data: " frames.
func dataFrames(batch []byte) string {
	var sb strings.Builder
	for line := range strings.Lines(string(batch)) {
		payload, ok := llm.SSEData([]byte(strings.TrimRight(line, "\r\n")))
		if !ok || len(payload) == 0 {
			continue
		}
		sb.WriteString("data: ")
		sb.Write(payload)
		sb.WriteByte('\n')
	}
	return sb.String()
}
