package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/Rrens/neuralizard/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider for Google Gemini. It registers as "google".
type Provider struct {
	apiKey   string
	model    string
	endpoint string
}

func NewProvider(apiKey, model, endpoint string) llm.Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
	}
}

func (p *Provider) Name() string {
	return "google"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-2.5-pro",
		"gemini-2.0-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	return p.model
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) newClient(ctx context.Context) (*genai.Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func (p *Provider) configure(client *genai.Client, opts llm.Options) (*genai.GenerativeModel, string) {
	name := opts.ModelOr(p.model)
	m := client.GenerativeModel(name)
	m.SetTemperature(float32(opts.TemperatureOr(llm.DefaultTemperature)))
	m.SetMaxOutputTokens(int32(opts.MaxTokensOr(llm.DefaultMaxTokens)))
	return m, name
}

func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: google", llm.ErrMissingCredential)
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model, name := p.configure(client, opts)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	text := textOf(resp)
	if text == "" {
		return nil, errors.New("empty response from gemini")
	}

	res := &llm.Result{
		Text:      strings.TrimSpace(text),
		Provider:  p.Name(),
		Model:     name,
		LatencyMs: latency,
	}
	if resp.UsageMetadata != nil {
		res.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		res.ResponseTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return res, nil
}

// RawStream yields the text of each streamed response as a plain token.
func (p *Provider) RawStream(ctx context.Context, prompt string, opts llm.Options) iter.Seq2[llm.RawEvent, error] {
	if !p.IsConfigured() {
		return llm.Failed(fmt.Errorf("%w: google", llm.ErrMissingCredential))
	}

	return func(yield func(llm.RawEvent, error) bool) {
		client, err := p.newClient(ctx)
		if err != nil {
			yield(llm.RawEvent{}, err)
			return
		}
		defer client.Close()

		model, _ := p.configure(client, opts)
		it := model.GenerateContentStream(ctx, genai.Text(prompt))
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(llm.RawEvent{}, fmt.Errorf("gemini stream error: %w", err))
				return
			}
			if text := textOf(resp); text != "" {
				if !yield(llm.Token(text), nil) {
					return
				}
			}
		}
	}
}

// textOf concatenates the text parts of the first candidate.
func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
