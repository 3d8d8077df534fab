package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/metrics"
)

const (
	connectedMessage     = "Connected. Send JSON frames."
	defaultHistoryLimit  = 50
	defaultStreamTimeout = 5 * time.Minute
)

var validate = validator.New()

// Transport carries JSON frames for one connection. ReadFrame returns io.EOF
// once the peer has closed the connection.
type Transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(v any) error
	Close() error
}

// ChatConfig tunes the chat sessions.
type ChatConfig struct {
	DefaultProvider string
	ContextWindow   int
	HistoryLimit    int
	StreamTimeout   time.Duration
}

// ChatService drives interactive chat sessions.
type ChatService struct {
	store   *domain.Store
	router  *llm.Router
	titles  *TitleService
	metrics *metrics.Metrics
	cfg     ChatConfig
}

// NewChatService creates a new chat service
func NewChatService(store *domain.Store, router *llm.Router, titles *TitleService, m *metrics.Metrics, cfg ChatConfig) *ChatService {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = router.DefaultProvider()
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}
	if titles == nil {
		titles = NewTitleService(store.Conversations, nil, DefaultTitleTimeout, m)
	}
	return &ChatService{
		store:   store,
		router:  router,
		titles:  titles,
		metrics: m,
		cfg:     cfg,
	}
}

// Serve runs one session over t until the peer disconnects.
func (s *ChatService) Serve(ctx context.Context, t Transport) error {
	return s.NewSession(t).Run(ctx)
}

// NewSession creates a session bound to t.
func (s *ChatService) NewSession(t Transport) *Session {
	id := uuid.NewString()
	return &Session{
		svc:       s,
		transport: t,
		provider:  s.cfg.DefaultProvider,
		window:    NewWindow(s.cfg.ContextWindow),
		logger:    log.With().Str("session_id", id).Logger(),
	}
}

// Session is the state of one interactive connection. Frames are handled
// one at a time; only title inference runs alongside.
type Session struct {
	svc       *ChatService
	transport Transport
	logger    zerolog.Logger

	writeMu sync.Mutex
	titles  sync.WaitGroup

	conversationID *uuid.UUID
	provider       string
	window         *Window
}

// errClientGone stops the session after a failed write.
var errClientGone = errors.New("client disconnected")

// Run greets the client and processes frames until the transport closes.
func (ss *Session) Run(ctx context.Context) (err error) {
	ss.svc.metrics.SessionOpened()
	defer ss.svc.metrics.SessionClosed()
	defer ss.titles.Wait()

	defer func() {
		if r := recover(); r != nil {
			ss.logger.Error().Interface("panic", r).Msg("Session failed")
			_ = ss.send(newError(fmt.Sprintf("Fatal: %v", r)))
			_ = ss.transport.Close()
			err = fmt.Errorf("session panic: %v", r)
		}
	}()

	if err := ss.send(infoFrame{Type: FrameInfo, Message: connectedMessage}); err != nil {
		return nil
	}
	ss.logger.Debug().Msg("Session started")

	for {
		raw, err := ss.transport.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				ss.logger.Debug().Msg("Session closed")
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		if err := ss.handle(ctx, raw); err != nil {
			if errors.Is(err, errClientGone) {
				ss.logger.Debug().Msg("Client disconnected")
				return nil
			}
			return err
		}
	}
}

// handle dispatches one raw frame. Only transport failures are returned.
func (ss *Session) handle(ctx context.Context, raw []byte) error {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		ss.svc.metrics.RecordFrame("invalid")
		return ss.fail("Invalid JSON")
	}

	switch {
	case f.Type == FrameNewChat:
		ss.svc.metrics.RecordFrame(FrameNewChat)
		return ss.newChat(ctx, &f)
	case f.Type == FrameHistory:
		ss.svc.metrics.RecordFrame(FrameHistory)
		return ss.history(ctx, &f)
	case f.Type == FrameConversation || f.Type == FrameConversationDetail:
		ss.svc.metrics.RecordFrame(FrameConversation)
		return ss.loadConversation(ctx, &f)
	case f.Type == FrameProviders || f.Action == FrameProviders:
		ss.svc.metrics.RecordFrame(FrameProviders)
		return ss.providers()
	case f.Type == FrameSetProvider:
		ss.svc.metrics.RecordFrame(FrameSetProvider)
		return ss.setProvider(f.Provider, true)
	case f.Type == FrameDeleteConversation:
		ss.svc.metrics.RecordFrame(FrameDeleteConversation)
		return ss.deleteConversation(ctx, &f)
	case f.Type == FrameRate || f.Type == FrameRating:
		ss.svc.metrics.RecordFrame(FrameRate)
		return ss.rate(ctx, &f)
	case !contentTypes[f.Type]:
		ss.svc.metrics.RecordFrame("unknown")
		return ss.fail("Unknown frame type: " + f.Type)
	case strings.TrimSpace(f.Prompt) == "" && strings.TrimSpace(f.Provider) != "":
		ss.svc.metrics.RecordFrame(FrameSetProvider)
		return ss.setProvider(f.Provider, false)
	default:
		ss.svc.metrics.RecordFrame("content")
		return ss.prompt(ctx, &f)
	}
}

// send writes one frame. Writes are serialized with title notifications.
func (ss *Session) send(v any) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()

	if err := ss.transport.WriteFrame(v); err != nil {
		return fmt.Errorf("%w: %v", errClientGone, err)
	}
	return nil
}

// fail replies with an error frame.
func (ss *Session) fail(msg string) error {
	return ss.send(newError(msg))
}

// Turns returns the in-memory context.
func (ss *Session) Turns() []Turn {
	return ss.window.Turns()
}

// ConversationID returns the bound conversation, if any.
func (ss *Session) ConversationID() (uuid.UUID, bool) {
	if ss.conversationID == nil {
		return uuid.Nil, false
	}
	return *ss.conversationID, true
}

// Provider returns the selected provider name.
func (ss *Session) Provider() string {
	return ss.provider
}
