package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/metrics"
)

// DefaultTitleTimeout bounds one title completion.
const DefaultTitleTimeout = 15 * time.Second

// TitleLock grants one title attempt per conversation at a time.
type TitleLock interface {
	// Acquire returns ok=false when another attempt holds the lock.
	Acquire(ctx context.Context, conversationID uuid.UUID) (release func(), ok bool, err error)
}

// LocalTitleLock is an in-process TitleLock.
type LocalTitleLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewLocalTitleLock creates an empty in-process lock.
func NewLocalTitleLock() *LocalTitleLock {
	return &LocalTitleLock{held: make(map[uuid.UUID]struct{})}
}

func (l *LocalTitleLock) Acquire(_ context.Context, conversationID uuid.UUID) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[conversationID]; busy {
		return nil, false, nil
	}
	l.held[conversationID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, conversationID)
			l.mu.Unlock()
		})
	}, true, nil
}

// TitleRequest carries the exchange a title is inferred from.
type TitleRequest struct {
	ConversationID uuid.UUID
	Provider       llm.Provider
	Model          string
	FirstUser      string
	Reply          string
}

// TitleService infers a short title for untitled conversations.
type TitleService struct {
	conversations domain.ConversationRepository
	lock          TitleLock
	timeout       time.Duration
	metrics       *metrics.Metrics
}

// NewTitleService creates a title service. A nil lock selects the in-process lock.
func NewTitleService(conversations domain.ConversationRepository, lock TitleLock, timeout time.Duration, m *metrics.Metrics) *TitleService {
	if lock == nil {
		lock = NewLocalTitleLock()
	}
	if timeout <= 0 {
		timeout = DefaultTitleTimeout
	}
	return &TitleService{
		conversations: conversations,
		lock:          lock,
		timeout:       timeout,
		metrics:       m,
	}
}

// Infer sets the conversation title when it has none and reports the title
// written. Every failure is logged and abandoned.
func (s *TitleService) Infer(ctx context.Context, req TitleRequest) (string, bool) {
	logger := log.With().Str("conversation_id", req.ConversationID.String()).Logger()

	conv, err := s.conversations.Get(ctx, req.ConversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("Title inference: conversation lookup failed")
		s.metrics.RecordTitle("failed")
		return "", false
	}
	if conv.Title != "" {
		s.metrics.RecordTitle("skipped")
		return "", false
	}

	release, ok, err := s.lock.Acquire(ctx, req.ConversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("Title inference: lock unavailable")
		s.metrics.RecordTitle("failed")
		return "", false
	}
	if !ok {
		s.metrics.RecordTitle("skipped")
		return "", false
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := req.Provider.Complete(callCtx, llm.BuildTitlePrompt(req.FirstUser, req.Reply), llm.Options{
		Model:       req.Model,
		Temperature: llm.Temperature(llm.TitleTemperature),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			logger.Warn().Dur("timeout", s.timeout).Msg("Title generation timed out")
			s.metrics.RecordTitle("timeout")
			return "", false
		}
		logger.Warn().Err(err).Msg("Title generation failed")
		s.metrics.RecordTitle("failed")
		return "", false
	}

	title := llm.SanitizeTitle(res.Text)
	if title == "" {
		logger.Warn().Msg("Title post-processing produced empty title")
		s.metrics.RecordTitle("empty")
		return "", false
	}

	written, err := s.conversations.SetTitleIfEmpty(ctx, req.ConversationID, title)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to save conversation title")
		s.metrics.RecordTitle("failed")
		return "", false
	}
	if !written {
		s.metrics.RecordTitle("skipped")
		return "", false
	}

	logger.Info().Str("title", title).Msg("Updated conversation title")
	s.metrics.RecordTitle("set")
	return title, true
}
