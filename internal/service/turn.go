package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
)

// disconnectedError is recorded on an assistant message whose client went away.
const disconnectedError = "client disconnected"

// prompt runs one content frame: persist the user turn, stream the reply,
// then seal the assistant message.
func (ss *Session) prompt(ctx context.Context, f *inboundFrame) error {
	text := strings.TrimSpace(f.Prompt)
	if text == "" {
		return ss.fail("Empty prompt")
	}

	var conversationID uuid.UUID
	if raw := f.ConversationID; present(raw) {
		id, err := uuid.Parse(rawString(raw))
		if err != nil {
			return ss.fail("Invalid conversation id")
		}
		conversationID = id
	} else if ss.conversationID != nil {
		conversationID = *ss.conversationID
	} else {
		return ss.fail("No conversation selected. Create one first.")
	}

	providerName := strings.ToLower(strings.TrimSpace(f.Provider))
	if providerName == "" {
		providerName = ss.provider
	}

	provider, err := ss.svc.router.Resolve(providerName)
	if err != nil {
		return ss.fail(fmt.Sprintf("Provider load failed: %v", err))
	}

	opts := llm.Options{Model: strings.TrimSpace(f.Model), Temperature: f.Temperature}
	model := opts.ModelOr(provider.DefaultModel())
	start := time.Now()

	userMsg := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        text,
		Provider:       providerName,
		Model:          model,
	}
	if err := ss.svc.store.Messages.Create(ctx, userMsg); err != nil {
		return ss.failStorage(err)
	}

	ss.window.Append(domain.RoleUser, text)
	transcript := ss.window.Transcript(text)

	assistant := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Provider:       providerName,
		Model:          model,
	}
	if err := ss.svc.store.Messages.Create(ctx, assistant); err != nil {
		return ss.failStorage(err)
	}

	if err := ss.send(startFrame{Type: FrameStart, Provider: providerName, Model: model, MessageID: assistant.ID}); err != nil {
		ss.seal(assistant.ID, "", start, 0, 0, disconnectedError)
		return err
	}

	streamCtx, cancel := context.WithTimeout(ctx, ss.svc.cfg.StreamTimeout)
	defer cancel()

	var (
		out        strings.Builder
		firstToken time.Duration
		tokens     int
		streamErr  error
	)
	for chunk := range llm.Stream(streamCtx, provider, transcript, opts) {
		if chunk.Failed() {
			streamErr = chunk.Err
			break
		}
		tokens++
		for _, piece := range splitKeepSpace(chunk.Text) {
			if firstToken == 0 {
				firstToken = time.Since(start)
			}
			if err := ss.send(deltaFrame{Type: FrameDelta, Data: piece}); err != nil {
				ss.seal(assistant.ID, out.String(), start, firstToken, tokens, disconnectedError)
				ss.svc.metrics.RecordTurn(providerName, "disconnected", time.Since(start), firstToken, tokens)
				return err
			}
			out.WriteString(piece)
		}
	}

	if streamErr != nil {
		ss.logger.Warn().Err(streamErr).Str("provider", providerName).Msg("Stream failed")
		ss.seal(assistant.ID, out.String(), start, firstToken, tokens, streamErr.Error())
		ss.svc.metrics.RecordTurn(providerName, "error", time.Since(start), firstToken, tokens)
		return ss.fail(streamErr.Error())
	}

	reply := strings.TrimSpace(out.String())
	ss.window.Append(domain.RoleAssistant, reply)

	if err := ss.send(doneFrame{Type: FrameDone, MessageID: assistant.ID}); err != nil {
		ss.seal(assistant.ID, reply, start, firstToken, tokens, "")
		return err
	}

	ss.seal(assistant.ID, reply, start, firstToken, tokens, "")
	ss.svc.metrics.RecordTurn(providerName, "ok", time.Since(start), firstToken, tokens)

	ss.inferTitle(ctx, TitleRequest{
		ConversationID: conversationID,
		Provider:       provider,
		Model:          opts.Model,
		FirstUser:      text,
		Reply:          reply,
	})
	return nil
}

// seal writes the final state of an assistant message. It outlives the
// request context so partial replies survive a disconnect.
func (ss *Session) seal(id int64, content string, start time.Time, firstToken time.Duration, tokens int, errText string) {
	latency := time.Since(start)
	if firstToken == 0 {
		firstToken = latency
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := ss.svc.store.Messages.Update(ctx, id, domain.MessageUpdate{
		Content:        content,
		ResponseTokens: tokens,
		LatencyMs:      latency.Milliseconds(),
		FirstTokenMs:   firstToken.Milliseconds(),
		Error:          errText,
	})
	if err != nil {
		ss.logger.Error().Err(err).Int64("message_id", id).Msg("Failed to update assistant message")
	}
}

func (ss *Session) failStorage(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ss.fail("Conversation not found")
	}
	ss.logger.Error().Err(err).Msg("Failed to save message")
	return ss.fail(fmt.Sprintf("Failed to save message: %v", err))
}

// inferTitle runs title inference in the background and notifies the client
// when a title is written.
func (ss *Session) inferTitle(ctx context.Context, req TitleRequest) {
	ctx = context.WithoutCancel(ctx)

	ss.titles.Add(1)
	go func() {
		defer ss.titles.Done()
		defer func() {
			if r := recover(); r != nil {
				ss.logger.Error().Interface("panic", r).Msg("Title inference panicked")
			}
		}()

		title, ok := ss.svc.titles.Infer(ctx, req)
		if !ok {
			return
		}
		if err := ss.send(titleFrame{Type: FrameConversationTitle, ID: req.ConversationID.String(), Title: title}); err != nil {
			ss.logger.Debug().Err(err).Msg("Title frame not delivered")
		}
	}()
}
