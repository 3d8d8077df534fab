package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
)

// CompletionRequest is a single prompt addressed to one provider.
type CompletionRequest struct {
	Prompt      string   `json:"prompt" validate:"required"`
	Provider    string   `json:"provider" validate:"omitempty,max=32"`
	Model       string   `json:"model" validate:"omitempty,max=128"`
	Temperature *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens   int      `json:"max_tokens" validate:"omitempty,min=1"`
	// Category is a free-form tag stored with the recorded exchange.
	Category string `json:"category" validate:"omitempty,max=64"`
}

// Validate checks the request shape.
func (r CompletionRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	return validate.Struct(r)
}

func (r CompletionRequest) options() llm.Options {
	return llm.Options{Model: strings.TrimSpace(r.Model), Temperature: r.Temperature, MaxTokens: r.MaxTokens}
}

// StreamResult summarizes a streamed completion.
type StreamResult struct {
	Text       string
	Provider   string
	Model      string
	Tokens     int
	Latency    time.Duration
	FirstToken time.Duration
	// Err is the provider failure inlined into the output, if any.
	Err error
}

// Exchange is one prompt/reply pair to persist outside a chat session.
type Exchange struct {
	ConversationID uuid.UUID
	Provider       string
	Model          string
	Category       string
	Prompt         string
	Reply          string
	PromptTokens   int
	ResponseTokens int
	Latency        time.Duration
	FirstToken     time.Duration
	Error          string
}

// CompletionService handles request/reply completions for the HTTP API and CLI.
type CompletionService struct {
	router *llm.Router
	store  *domain.Store
}

// NewCompletionService creates a completion service. store may be nil when
// nothing is persisted.
func NewCompletionService(router *llm.Router, store *domain.Store) *CompletionService {
	return &CompletionService{router: router, store: store}
}

// Router returns the provider registry.
func (s *CompletionService) Router() *llm.Router {
	return s.router
}

// Resolve returns the provider named by req, or the default.
func (s *CompletionService) Resolve(req CompletionRequest) (llm.Provider, error) {
	return s.router.Resolve(req.Provider)
}

// Complete runs a single-shot completion.
func (s *CompletionService) Complete(ctx context.Context, req CompletionRequest) (*llm.Result, error) {
	provider, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}
	res, err := provider.Complete(ctx, req.Prompt, req.options())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider.Name(), err)
	}
	return res, nil
}

type flusher interface {
	Flush()
}

// Stream writes normalized tokens from provider to w, flushing after each
// when w supports it. A provider failure is written inline as a diagnostic
// marker and reported in the result; the returned error is a write failure.
func (s *CompletionService) Stream(ctx context.Context, provider llm.Provider, req CompletionRequest, w io.Writer) (*StreamResult, error) {
	opts := req.options()
	res := &StreamResult{Provider: provider.Name(), Model: opts.ModelOr(provider.DefaultModel())}
	start := time.Now()

	var out strings.Builder
	for chunk := range llm.Stream(ctx, provider, req.Prompt, opts) {
		if chunk.Failed() {
			res.Err = chunk.Err
		} else {
			if res.FirstToken == 0 {
				res.FirstToken = time.Since(start)
			}
			res.Tokens++
			out.WriteString(chunk.Text)
		}

		if _, err := io.WriteString(w, chunk.Text); err != nil {
			res.Text = out.String()
			res.Latency = time.Since(start)
			return res, fmt.Errorf("failed to write stream: %w", err)
		}
		if f, ok := w.(flusher); ok {
			f.Flush()
		}
	}

	res.Text = out.String()
	res.Latency = time.Since(start)
	return res, nil
}

// Record persists an exchange as a user/assistant message pair. A new
// conversation is created when ex.ConversationID is nil; its id is returned
// with the assistant message id.
func (s *CompletionService) Record(ctx context.Context, ex Exchange) (uuid.UUID, int64, error) {
	if s.store == nil {
		return uuid.Nil, 0, fmt.Errorf("no store configured")
	}

	conversationID := ex.ConversationID
	if conversationID == uuid.Nil {
		conv := domain.NewConversation(ex.Provider, ex.Model)
		if err := s.store.Conversations.Create(ctx, conv); err != nil {
			return uuid.Nil, 0, fmt.Errorf("failed to create conversation: %w", err)
		}
		conversationID = conv.ID
	}

	user := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        ex.Prompt,
		Provider:       ex.Provider,
		Model:          ex.Model,
		Category:       ex.Category,
		PromptTokens:   ex.PromptTokens,
	}
	if err := s.store.Messages.Create(ctx, user); err != nil {
		return conversationID, 0, fmt.Errorf("failed to save prompt: %w", err)
	}

	firstToken := ex.FirstToken
	if firstToken == 0 {
		firstToken = ex.Latency
	}
	assistant := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Content:        ex.Reply,
		Provider:       ex.Provider,
		Model:          ex.Model,
		Category:       ex.Category,
		ResponseTokens: ex.ResponseTokens,
		LatencyMs:      ex.Latency.Milliseconds(),
		FirstTokenMs:   firstToken.Milliseconds(),
		Error:          ex.Error,
	}
	if err := s.store.Messages.Create(ctx, assistant); err != nil {
		return conversationID, 0, fmt.Errorf("failed to save reply: %w", err)
	}
	return conversationID, assistant.ID, nil
}

// Ask completes req and records the exchange in a new conversation.
func (s *CompletionService) Ask(ctx context.Context, req CompletionRequest) (*llm.Result, int64, error) {
	res, err := s.Complete(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	_, id, err := s.Record(ctx, Exchange{
		Provider:       res.Provider,
		Model:          res.Model,
		Category:       strings.TrimSpace(req.Category),
		Prompt:         req.Prompt,
		Reply:          res.Text,
		PromptTokens:   res.PromptTokens,
		ResponseTokens: res.ResponseTokens,
		Latency:        time.Duration(res.LatencyMs) * time.Millisecond,
	})
	if err != nil {
		return res, 0, err
	}
	return res, id, nil
}

// Rate records a rating for a message.
func (s *CompletionService) Rate(ctx context.Context, rating *domain.MessageRating) error {
	if s.store == nil {
		return fmt.Errorf("no store configured")
	}
	if err := validate.Struct(rating); err != nil {
		return err
	}
	return s.store.Ratings.Create(ctx, rating)
}

// Recent returns the newest messages first.
func (s *CompletionService) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return s.store.Messages.ListRecent(ctx, limit)
}
