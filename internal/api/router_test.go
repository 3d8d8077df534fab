package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/api"
	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/metrics"
	"github.com/Rrens/neuralizard/internal/repository"
	"github.com/Rrens/neuralizard/internal/service"
)

type scriptedProvider struct {
	name   string
	tokens []string
	err    error
	reply  string
}

func (p *scriptedProvider) Name() string              { return p.name }
func (p *scriptedProvider) AvailableModels() []string { return []string{"s-1", "s-2"} }
func (p *scriptedProvider) DefaultModel() string      { return "s-1" }
func (p *scriptedProvider) IsConfigured() bool        { return true }

func (p *scriptedProvider) Complete(_ context.Context, _ string, opts llm.Options) (*llm.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Result{Text: p.reply, Provider: p.name, Model: opts.ModelOr("s-1")}, nil
}

func (p *scriptedProvider) RawStream(context.Context, string, llm.Options) iter.Seq2[llm.RawEvent, error] {
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

type fixture struct {
	server *httptest.Server
	store  *domain.Store
}

func newFixture(t *testing.T, providers ...llm.Provider) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := repository.Open(ctx, config.DatabaseConfig{URL: "sqlite://" + filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	router := llm.NewRouter(providers[0].Name())
	for _, p := range providers {
		router.RegisterProvider(p)
	}

	m := metrics.New()
	titles := service.NewTitleService(store.Conversations, nil, time.Second, m)
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}

	handler := api.NewRouter(cfg, api.Dependencies{
		Store:       store,
		Completions: service.NewCompletionService(router, store),
		Chat:        service.NewChatService(store, router, titles, m, service.ChatConfig{DefaultProvider: router.DefaultProvider()}),
		Metrics:     m,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: store}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (f *fixture) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRouter_Probes(t *testing.T) {
	f := newFixture(t, &scriptedProvider{name: "alpha"})

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Neuralizard API is running", decode(t, body)["message"])

	resp, body = f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode(t, body)
	assert.Equal(t, true, health["success"])
	assert.Equal(t, "ok", health["data"].(map[string]any)["status"])

	resp, body = f.get(t, "/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", decode(t, body)["data"].(map[string]any)["status"])

	resp, body = f.get(t, "/chat/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, body))

	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestRouter_Providers(t *testing.T) {
	f := newFixture(t, &scriptedProvider{name: "alpha"}, &scriptedProvider{name: "beta"})

	resp, body := f.get(t, "/chat/providers")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, "alpha", out["default_provider"])
	assert.Equal(t, []any{"alpha", "beta"}, out["available"])

	providers := out["providers"].([]any)
	require.Len(t, providers, 2)
	first := providers[0].(map[string]any)
	assert.Equal(t, "alpha", first["name"])
	assert.Equal(t, true, first["default"])
	assert.Equal(t, "s-1", first["default_model"])
}

func TestRouter_Complete(t *testing.T) {
	f := newFixture(t,
		&scriptedProvider{name: "alpha", reply: "pong"},
		&scriptedProvider{name: "broken", err: errors.New("quota exceeded")},
	)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		check      func(t *testing.T, out map[string]any)
	}{
		{
			name:       "default provider",
			body:       map[string]any{"prompt": "ping"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, map[string]any{"text": "pong", "provider": "alpha", "model": "s-1"}, out)
			},
		},
		{
			name:       "explicit model",
			body:       map[string]any{"prompt": "ping", "provider": "alpha", "model": "s-2", "temperature": 0.2},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "s-2", out["model"])
			},
		},
		{
			name:       "missing prompt",
			body:       map[string]any{"provider": "alpha"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "temperature out of range",
			body:       map[string]any{"prompt": "x", "temperature": 9},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "provider failure",
			body:       map[string]any{"prompt": "x", "provider": "broken"},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "Provider error: broken: quota exceeded", out["detail"])
			},
		},
		{
			name:       "unknown provider",
			body:       map[string]any{"prompt": "x", "provider": "nope"},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, out map[string]any) {
				assert.Contains(t, out["detail"], "unknown provider")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.post(t, "/chat/complete", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.check != nil {
				tt.check(t, decode(t, body))
			}
		})
	}
}

func TestRouter_Stream(t *testing.T) {
	f := newFixture(t,
		&scriptedProvider{name: "alpha", tokens: []string{"Hel", "lo", " there"}},
		&scriptedProvider{name: "flaky", tokens: []string{"par", "tial"}, err: errors.New("connection reset")},
	)

	resp, body := f.post(t, "/chat/stream", map[string]any{"prompt": "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Equal(t, "Hello there", string(body))

	resp, body = f.post(t, "/chat/stream", map[string]any{"prompt": "hi", "provider": "flaky"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "partial[stream error: connection reset]", string(body))

	resp, body = f.post(t, "/chat/stream", map[string]any{"prompt": "hi", "provider": "ghost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, body)["detail"], "unknown provider: ghost")
}

func TestRouter_Metrics(t *testing.T) {
	f := newFixture(t, &scriptedProvider{name: "alpha"})
	f.get(t, "/chat/ping")

	resp, body := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `neuralizard_http_requests_total{method="GET",route="/chat/ping",status="200"} 1`)
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func readUntil(t *testing.T, conn *websocket.Conn, frameType string) (map[string]any, []map[string]any) {
	t.Helper()
	var seen []map[string]any
	for {
		f := readFrame(t, conn)
		seen = append(seen, f)
		if f["type"] == frameType {
			return f, seen
		}
	}
}

func TestRouter_WebSocketChat(t *testing.T) {
	f := newFixture(t, &scriptedProvider{name: "alpha", tokens: []string{"Hi", " you"}, reply: "Greeting Exchange"})
	conn := dial(t, f)

	info := readFrame(t, conn)
	assert.Equal(t, "info", info["type"])
	assert.Equal(t, "Connected. Send JSON frames.", info["message"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "new_chat"}))
	created := readFrame(t, conn)
	require.Equal(t, "conversation_created", created["type"])
	convID, _ := created["id"].(string)
	require.NotEmpty(t, convID)

	require.NoError(t, conn.WriteJSON(map[string]any{"content": "hello"}))
	done, seen := readUntil(t, conn, "done")
	assert.Equal(t, "start", seen[0]["type"])

	var streamed strings.Builder
	for _, fr := range seen {
		if fr["type"] == "delta" {
			streamed.WriteString(fr["data"].(string))
		}
	}
	assert.Equal(t, "Hi you", streamed.String())
	assert.NotNil(t, done["message_id"])

	title, _ := readUntil(t, conn, "conversation_title")
	assert.Equal(t, convID, title["id"])
	assert.Equal(t, "Greeting Exchange", title["title"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	errFrame := readFrame(t, conn)
	assert.Equal(t, "error", errFrame["type"])
	assert.Equal(t, "Invalid JSON", errFrame["error"])
}

func TestRouter_WebSocketCloseEndsSession(t *testing.T) {
	f := newFixture(t, &scriptedProvider{name: "alpha"})
	conn := dial(t, f)
	readFrame(t, conn)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, msg))

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
