package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Valid reports whether r is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Message is one entry of a conversation. Assistant content is written once
// the stream completes or fails.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Provider       string      `json:"provider,omitempty"`
	Model          string      `json:"model,omitempty"`
	Category       string      `json:"category,omitempty"`
	PromptTokens   int         `json:"prompt_tokens"`
	ResponseTokens int         `json:"response_tokens"`
	LatencyMs      int64       `json:"latency_ms"`
	FirstTokenMs   int64       `json:"first_token_ms"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MessageUpdate seals an assistant message.
type MessageUpdate struct {
	Content        string
	PromptTokens   int
	ResponseTokens int
	LatencyMs      int64
	FirstTokenMs   int64
	Error          string
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Create assigns ID and CreatedAt and bumps the conversation's UpdatedAt.
	Create(ctx context.Context, message *Message) error
	// Update returns ErrNotFound when the id is unknown.
	Update(ctx context.Context, id int64, upd MessageUpdate) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	ListByConversations(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID][]Message, error)
	// ListRecent returns the newest messages first.
	ListRecent(ctx context.Context, limit int) ([]Message, error)
}
