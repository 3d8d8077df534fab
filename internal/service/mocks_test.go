package service

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/repository/migrations"
	"github.com/Rrens/neuralizard/internal/repository/sqlstore"
)

// MockConversationRepository mocks the ConversationRepository interface
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, limit, offset int) ([]domain.Conversation, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockConversationRepository) SetTitleIfEmpty(ctx context.Context, id uuid.UUID, title string) (bool, error) {
	args := m.Called(ctx, id, title)
	return args.Bool(0), args.Error(1)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) Update(ctx context.Context, id int64, upd domain.MessageUpdate) error {
	args := m.Called(ctx, id, upd)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListByConversations(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID][]domain.Message, error) {
	args := m.Called(ctx, conversationIDs)
	return args.Get(0).(map[uuid.UUID][]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockRatingRepository mocks the RatingRepository interface
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Create(ctx context.Context, rating *domain.MessageRating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.MessageRating, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).([]domain.MessageRating), args.Error(1)
}

// newSQLiteStore returns a migrated store in a temp directory.
func newSQLiteStore(t *testing.T) *domain.Store {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "chat.db")}
	require.NoError(t, migrations.Up(cfg))

	db, err := sqlstore.Open(context.Background(), cfg)
	require.NoError(t, err)
	store := sqlstore.NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

// fakeProvider streams a fixed token script and answers completions with title.
type fakeProvider struct {
	name   string
	tokens []string
	err    error
	panics bool

	title    string
	titleErr error
	block    bool

	mu      sync.Mutex
	prompts []string
	titles  int
}

func (p *fakeProvider) Name() string              { return p.name }
func (p *fakeProvider) AvailableModels() []string { return []string{"fake-1"} }
func (p *fakeProvider) DefaultModel() string      { return "fake-1" }
func (p *fakeProvider) IsConfigured() bool        { return true }

func (p *fakeProvider) Complete(ctx context.Context, prompt string, opts llm.Options) (*llm.Result, error) {
	p.mu.Lock()
	p.titles++
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.titleErr != nil {
		return nil, p.titleErr
	}
	return &llm.Result{Text: p.title, Provider: p.name, Model: opts.ModelOr("fake-1"), PromptTokens: 3, ResponseTokens: 2, LatencyMs: 5}, nil
}

func (p *fakeProvider) RawStream(_ context.Context, prompt string, _ llm.Options) iter.Seq2[llm.RawEvent, error] {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.panics {
		panic("adapter exploded")
	}
	return func(yield func(llm.RawEvent, error) bool) {
		for _, tok := range p.tokens {
			if !yield(llm.Token(tok), nil) {
				return
			}
		}
		if p.err != nil {
			yield(llm.RawEvent{}, p.err)
		}
	}
}

func (p *fakeProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func (p *fakeProvider) titleCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.titles
}

// fakeTransport replays scripted client frames and records server frames.
type fakeTransport struct {
	in chan []byte

	mu        sync.Mutex
	out       []map[string]any
	failAfter int
	closed    bool
}

func newFakeTransport(frames ...any) *fakeTransport {
	t := &fakeTransport{in: make(chan []byte, len(frames))}
	for _, f := range frames {
		switch v := f.(type) {
		case string:
			t.in <- []byte(v)
		default:
			b, _ := json.Marshal(v)
			t.in <- b
		}
	}
	close(t.in)
	return t
}

func (t *fakeTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-t.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) WriteFrame(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failAfter > 0 && len(t.out) >= t.failAfter {
		return io.ErrClosedPipe
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	t.out = append(t.out, m)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) frames() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]map[string]any(nil), t.out...)
}

func (t *fakeTransport) ofType(typ string) []map[string]any {
	var out []map[string]any
	for _, f := range t.frames() {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

func (t *fakeTransport) errors() []string {
	var out []string
	for _, f := range t.ofType(FrameError) {
		out = append(out, f["error"].(string))
	}
	return out
}

// newTestChat wires a chat service over store with fake providers registered.
func newTestChat(t *testing.T, store *domain.Store, providers ...*fakeProvider) *ChatService {
	t.Helper()
	router := llm.NewRouter(providers[0].name)
	for _, p := range providers {
		router.RegisterProvider(p)
	}
	router.Register("offline", "", func(string) llm.Provider { return &fakeProvider{name: "offline"} })

	titles := NewTitleService(store.Conversations, NewLocalTitleLock(), time.Second, nil)
	return NewChatService(store, router, titles, nil, ChatConfig{StreamTimeout: 5 * time.Second})
}
