package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/llm"
)

func newServer(t *testing.T, handler func(t *testing.T, req chatRequest, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(t, req, w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_Complete(t *testing.T) {
	srv := newServer(t, func(t *testing.T, req chatRequest, w http.ResponseWriter) {
		assert.False(t, req.Stream)
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[1].Content)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"  hi there \n"}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`)
	})

	p := New(Config{Name: "openai", BaseURL: srv.URL + "/", APIKey: "sk-test", DefaultModel: "gpt-4o-mini", SystemPrompt: "be brief"})

	res, err := p.Complete(context.Background(), "hello", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Text)
	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, 3, res.PromptTokens)
	assert.Equal(t, 2, res.ResponseTokens)
}

func TestProvider_CompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(Config{Name: "deepseek", BaseURL: srv.URL, APIKey: "sk-test", DefaultModel: "deepseek-chat"})
	_, err := p.Complete(context.Background(), "hello", llm.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestProvider_MissingCredential(t *testing.T) {
	p := New(Config{Name: "xai"})

	_, err := p.Complete(context.Background(), "x", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)

	text, err := llm.Collect(llm.Stream(context.Background(), p, "x", llm.Options{}))
	assert.Empty(t, text)
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestProvider_StreamNormalizes(t *testing.T) {
	for _, asBytes := range []bool{false, true} {
		t.Run(fmt.Sprintf("bytes=%v", asBytes), func(t *testing.T) {
			srv := newServer(t, func(t *testing.T, req chatRequest, w http.ResponseWriter) {
				assert.True(t, req.Stream)
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, ": keep-alive\n\n")
				fmt.Fprint(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
				fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
				fmt.Fprint(w, `data:{"choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
			})

			p := New(Config{Name: "mistral", BaseURL: srv.URL, APIKey: "sk-test", DefaultModel: "m", Bytes: asBytes})
			text, err := llm.Collect(llm.Stream(context.Background(), p, "hi", llm.Options{}))
			require.NoError(t, err)
			assert.Equal(t, "Hello", text)
		})
	}
}

func TestProvider_StreamBatchesFramesPerRead(t *testing.T) {
	srv := newServer(t, func(t *testing.T, req chatRequest, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n"+
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n"+
			`data:{"choices":[{"delta":{"content":"lo"}}]}`+"\n\n"+
			"data: [DONE]\n\n")
	})

	p := New(Config{Name: "xai", BaseURL: srv.URL, APIKey: "sk-test", DefaultModel: "grok", Batched: true})

	var events []llm.RawEvent
	for ev, err := range p.RawStream(context.Background(), "hi", llm.Options{}) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, llm.RawFrame, events[0].Kind)
	assert.Equal(t, 3, strings.Count(events[0].Text, "data: "))
	assert.NotContains(t, events[0].Text, "keep-alive")

	text, err := llm.Collect(llm.Stream(context.Background(), p, "hi", llm.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestDataFrames(t *testing.T) {
	tests := []struct {
		name  string
		batch string
		want  string
	}{
		{"keeps data lines", "data: a\n\ndata:b\r\n", "data: a\ndata: b\n"},
		{"drops comments and events", ": ping\nevent: x\ndata: a\n", "data: a\n"},
		{"nothing usable", ": ping\n\n", ""},
		{"empty data", "data:\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dataFrames([]byte(tt.batch)))
		})
	}
}

func TestProvider_StreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := New(Config{Name: "openai", BaseURL: srv.URL, APIKey: "sk-test"})

	var chunks []llm.Chunk
	for c := range llm.Stream(context.Background(), p, "x", llm.Options{}) {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Failed())
	assert.Contains(t, chunks[0].Text, "[stream error: openai: status 429")
}

func TestProvider_ModelAndTemperaturePolicy(t *testing.T) {
	p := New(Config{
		Name:           "perplexity",
		APIKey:         "k",
		DefaultModel:   "sonar-pro",
		Models:         []string{"sonar-pro", "sonar-small-chat"},
		StrictModels:   true,
		MaxTemperature: 2,
	})

	assert.Equal(t, "sonar-pro", p.request("x", llm.Options{Model: "gpt-4"}, false).Model)
	assert.Equal(t, "sonar-small-chat", p.request("x", llm.Options{Model: " sonar-small-chat "}, false).Model)
	assert.Equal(t, 2.0, p.request("x", llm.Options{Temperature: llm.Temperature(5)}, false).Temperature)
	assert.Equal(t, 0.0, p.request("x", llm.Options{Temperature: llm.Temperature(-1)}, false).Temperature)
	assert.Equal(t, llm.DefaultMaxTokens, p.request("x", llm.Options{}, false).MaxTokens)
}
