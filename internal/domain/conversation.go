package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UntitledPlaceholder is shown for conversations without an inferred title.
const UntitledPlaceholder = "New chat"

// Conversation is a chat thread. Title stays empty until inferred and is set at most once.
type Conversation struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	Title           string    `json:"title"`
	DefaultProvider string    `json:"default_provider"`
	DefaultModel    string    `json:"default_model"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayTitle returns the title or the placeholder when untitled.
func (c *Conversation) DisplayTitle() string {
	if c.Title == "" {
		return UntitledPlaceholder
	}
	return c.Title
}

// NewConversation builds an untitled conversation with a fresh id.
func NewConversation(provider, model string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:              uuid.New(),
		DefaultProvider: provider,
		DefaultModel:    model,
		StartedAt:       now,
		UpdatedAt:       now,
	}
}

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error
	// Get returns ErrNotFound when the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// List orders by most recently updated first.
	List(ctx context.Context, limit, offset int) ([]Conversation, error)
	// Delete removes the conversation with its messages and ratings.
	// It returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error
	// SetTitleIfEmpty writes title only while the stored title is empty and
	// reports whether it did.
	SetTitleIfEmpty(ctx context.Context, id uuid.UUID, title string) (bool, error)
}
