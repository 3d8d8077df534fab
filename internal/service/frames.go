package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/neuralizard/internal/domain"
)

// Inbound frame types.
const (
	FrameNewChat            = "new_chat"
	FrameHistory            = "history"
	FrameConversation       = "conversation"
	FrameConversationDetail = "conversation_detail"
	FrameProviders          = "providers"
	FrameSetProvider        = "set_provider"
	FrameDeleteConversation = "delete_conversation"
	FrameRate               = "rate"
	FrameRating             = "rating"
)

// Outbound frame types.
const (
	FrameInfo                = "info"
	FrameError               = "error"
	FrameConversationCreated = "conversation_created"
	FrameProviderChanged     = "provider_changed"
	FrameConversationDeleted = "conversation_deleted"
	FrameStart               = "start"
	FrameDelta               = "delta"
	FrameDone                = "done"
	FrameConversationTitle   = "conversation_title"
)

// contentTypes are the type values a content frame may carry.
var contentTypes = map[string]bool{"": true, "chat": true, "message": true, "prompt": true}

// previewLength caps the last-message preview in history summaries.
const previewLength = 160

// inboundFrame is the union of every client frame. Ids and numbers are kept
// raw so both JSON strings and numbers are accepted.
type inboundFrame struct {
	Type           string          `json:"type"`
	Action         string          `json:"action"`
	Prompt         string          `json:"prompt"`
	Provider       string          `json:"provider"`
	Model          string          `json:"model"`
	Temperature    *float64        `json:"temperature"`
	ID             json.RawMessage `json:"id"`
	ConversationID json.RawMessage `json:"conversation_id"`
	MessageID      json.RawMessage `json:"message_id"`
	Limit          json.RawMessage `json:"limit"`
	Offset         json.RawMessage `json:"offset"`
	Vote           json.RawMessage `json:"vote"`
	Score          json.RawMessage `json:"score"`
	Label          string          `json:"label"`
	Comment        string          `json:"comment"`
	UserID         string          `json:"user_id"`
}

var errNotInteger = errors.New("not an integer")

// present reports whether raw holds a non-null value.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// firstPresent returns the first non-null value.
func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, raw := range raws {
		if present(raw) {
			return raw
		}
	}
	return nil
}

// rawString renders a JSON string or number as text.
func rawString(raw json.RawMessage) string {
	if !present(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// rawInt parses a JSON integer, integral float, or numeric string.
func rawInt(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errNotInteger
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// intOr parses raw or returns def when absent or malformed.
func intOr(raw json.RawMessage, def int) int {
	if !present(raw) {
		return def
	}
	n, err := rawInt(raw)
	if err != nil {
		return def
	}
	return int(n)
}

type infoFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newError(msg string) errorFrame {
	return errorFrame{Type: FrameError, Error: msg}
}

type conversationCreatedFrame struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Title    string `json:"title"`
}

type messageView struct {
	ID             int64     `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	CreatedAt      time.Time `json:"created_at"`
	LatencyMs      int64     `json:"latency_ms"`
	FirstTokenMs   int64     `json:"first_token_ms"`
	Error          *string   `json:"error"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
}

func newMessageView(m domain.Message) messageView {
	v := messageView{
		ID:             m.ID,
		Role:           string(m.Role),
		Content:        m.Content,
		Provider:       m.Provider,
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
		LatencyMs:      m.LatencyMs,
		FirstTokenMs:   m.FirstTokenMs,
		PromptTokens:   m.PromptTokens,
		ResponseTokens: m.ResponseTokens,
	}
	if m.Error != "" {
		errText := m.Error
		v.Error = &errText
	}
	return v
}

func newMessageViews(msgs []domain.Message) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, newMessageView(m))
	}
	return views
}

type conversationSummary struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	StartedAt          time.Time     `json:"started_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	DefaultProvider    string        `json:"default_provider"`
	DefaultModel       string        `json:"default_model"`
	MessageCount       int           `json:"message_count"`
	LastMessagePreview *string       `json:"last_message_preview"`
	Messages           []messageView `json:"messages"`
}

func newConversationSummary(c domain.Conversation, msgs []domain.Message) conversationSummary {
	s := conversationSummary{
		ID:              c.ID.String(),
		Title:           c.DisplayTitle(),
		StartedAt:       c.StartedAt,
		UpdatedAt:       c.UpdatedAt,
		DefaultProvider: c.DefaultProvider,
		DefaultModel:    c.DefaultModel,
		MessageCount:    len(msgs),
		Messages:        newMessageViews(msgs),
	}
	if len(msgs) > 0 {
		if last := msgs[len(msgs)-1].Content; last != "" {
			p := preview(last)
			s.LastMessagePreview = &p
		}
	}
	return s
}

// preview cuts s to previewLength runes, marking the cut with an ellipsis.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength]) + "…"
}

type historyFrame struct {
	Type   string                `json:"type"`
	Items  []conversationSummary `json:"items"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

type conversationFrame struct {
	Type     string        `json:"type"`
	ID       string        `json:"id"`
	Messages []messageView `json:"messages"`
}

type providersFrame struct {
	Type      string   `json:"type"`
	Providers []string `json:"providers"`
	Current   string   `json:"current"`
}

type providerChangedFrame struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
}

type conversationDeletedFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ratingFrame struct {
	Type      string    `json:"type"`
	OK        bool      `json:"ok"`
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	Vote      int       `json:"vote"`
	Score     *int      `json:"score"`
	Label     *string   `json:"label"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type startFrame struct {
	Type      string `json:"type"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	MessageID int64  `json:"message_id"`
}

type deltaFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type doneFrame struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

type titleFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
}
