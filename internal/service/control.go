package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Rrens/neuralizard/internal/domain"
)

func (ss *Session) newChat(ctx context.Context, f *inboundFrame) error {
	provider := strings.ToLower(strings.TrimSpace(f.Provider))
	if provider == "" {
		provider = ss.provider
	}
	if provider == "" {
		provider = ss.svc.router.DefaultProvider()
	}

	conv := domain.NewConversation(provider, strings.TrimSpace(f.Model))
	if err := ss.svc.store.Conversations.Create(ctx, conv); err != nil {
		ss.logger.Error().Err(err).Msg("Failed to create conversation")
		return ss.fail(fmt.Sprintf("Create chat failed: %v", err))
	}

	id := conv.ID
	ss.conversationID = &id
	ss.provider = provider
	ss.window.Reset()

	return ss.send(conversationCreatedFrame{
		Type:     FrameConversationCreated,
		ID:       conv.ID.String(),
		Provider: provider,
		Title:    conv.DisplayTitle(),
	})
}

func (ss *Session) history(ctx context.Context, f *inboundFrame) error {
	limit := intOr(f.Limit, ss.svc.cfg.HistoryLimit)
	if limit <= 0 {
		limit = ss.svc.cfg.HistoryLimit
	}
	offset := max(intOr(f.Offset, 0), 0)

	convs, err := ss.svc.store.Conversations.List(ctx, limit, offset)
	if err != nil {
		return ss.fail(fmt.Sprintf("History failed: %v", err))
	}

	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	byConv, err := ss.svc.store.Messages.ListByConversations(ctx, ids)
	if err != nil {
		return ss.fail(fmt.Sprintf("History failed: %v", err))
	}

	items := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		items = append(items, newConversationSummary(c, byConv[c.ID]))
	}

	return ss.send(historyFrame{Type: FrameHistory, Items: items, Offset: offset, Limit: limit})
}

// conversationArg reads the conversation id from id or conversation_id. It
// reports false after sending the validation error.
func (ss *Session) conversationArg(f *inboundFrame) (uuid.UUID, bool, error) {
	raw := firstPresent(f.ID, f.ConversationID)
	if raw == nil {
		return uuid.Nil, false, ss.fail("Missing conversation id")
	}
	id, err := uuid.Parse(rawString(raw))
	if err != nil {
		return uuid.Nil, false, ss.fail("Invalid conversation id")
	}
	return id, true, nil
}

func (ss *Session) loadConversation(ctx context.Context, f *inboundFrame) error {
	id, ok, err := ss.conversationArg(f)
	if !ok {
		return err
	}

	if _, err := ss.svc.store.Conversations.Get(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ss.fail("Conversation not found")
		}
		return ss.fail(fmt.Sprintf("History failed: %v", err))
	}

	msgs, err := ss.svc.store.Messages.ListByConversation(ctx, id)
	if err != nil {
		return ss.fail(fmt.Sprintf("History failed: %v", err))
	}

	ss.window.Replace(msgs)
	ss.conversationID = &id

	return ss.send(conversationFrame{Type: FrameConversation, ID: id.String(), Messages: newMessageViews(msgs)})
}

func (ss *Session) providers() error {
	return ss.send(providersFrame{
		Type:      FrameProviders,
		Providers: ss.svc.router.Available(),
		Current:   ss.provider,
	})
}

// setProvider switches the session provider. A provider-only content frame
// naming the current provider is silently accepted.
func (ss *Session) setProvider(name string, explicit bool) error {
	requested := strings.ToLower(strings.TrimSpace(name))
	if requested == "" {
		return ss.fail("Missing provider")
	}
	if !explicit && requested == ss.provider {
		return nil
	}
	if !ss.svc.router.IsAvailable(requested) {
		return ss.fail("Provider not available: " + requested)
	}

	ss.provider = requested
	return ss.send(providerChangedFrame{Type: FrameProviderChanged, Provider: requested})
}

func (ss *Session) deleteConversation(ctx context.Context, f *inboundFrame) error {
	id, ok, err := ss.conversationArg(f)
	if !ok {
		return err
	}

	if err := ss.svc.store.Conversations.Delete(ctx, id); err != nil {
		return ss.fail(fmt.Sprintf("Delete failed: %v", err))
	}

	if ss.conversationID != nil && *ss.conversationID == id {
		ss.conversationID = nil
		ss.window.Reset()
	}
	return ss.send(conversationDeletedFrame{Type: FrameConversationDeleted, ID: id.String()})
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (ss *Session) rate(ctx context.Context, f *inboundFrame) error {
	raw := firstPresent(f.MessageID, f.ID)
	if raw == nil {
		return ss.fail("Missing message_id")
	}
	messageID, err := rawInt(raw)
	if err != nil {
		return ss.fail("Invalid message_id")
	}

	vote := 0
	if present(f.Vote) {
		v, err := rawInt(f.Vote)
		if err != nil || v < -1 || v > 1 {
			return ss.fail("vote must be -1, 0, or 1")
		}
		vote = int(v)
	}

	var score *int
	if present(f.Score) {
		v, err := rawInt(f.Score)
		if err != nil {
			return ss.fail("score must be integer 1..5")
		}
		if v < 1 || v > 5 {
			return ss.fail("score must be between 1 and 5")
		}
		n := int(v)
		score = &n
	}

	rating := &domain.MessageRating{
		MessageID: messageID,
		UserID:    optional(f.UserID),
		Vote:      vote,
		Score:     score,
		Label:     optional(f.Label),
		Comment:   optional(f.Comment),
	}
	if err := validate.Struct(rating); err != nil {
		return ss.fail(fmt.Sprintf("Rating failed: %v", err))
	}

	if err := ss.svc.store.Ratings.Create(ctx, rating); err != nil {
		return ss.fail(fmt.Sprintf("Rating failed: %v", err))
	}

	return ss.send(ratingFrame{
		Type:      FrameRating,
		OK:        true,
		ID:        rating.ID,
		MessageID: rating.MessageID,
		Vote:      rating.Vote,
		Score:     rating.Score,
		Label:     rating.Label,
		Comment:   rating.Comment,
		CreatedAt: rating.CreatedAt,
	})
}
