package cohere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/llm"
)

func TestProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, defaultModel, req.Model)

		fmt.Fprint(w, `{"text":" Hi! ","meta":{"billed_units":{"input_tokens":4,"output_tokens":2}}}`)
	}))
	defer srv.Close()

	res, err := NewProvider("co-key", "", srv.URL).Complete(context.Background(), "hello", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", res.Text)
	assert.Equal(t, 4, res.PromptTokens)
	assert.Equal(t, 2, res.ResponseTokens)
}

func TestProvider_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"is_finished":false,"event_type":"stream-start"}`)
		fmt.Fprintln(w, `{"is_finished":false,"event_type":"text-generation","text":"Hel"}`)
		fmt.Fprintln(w, `{"is_finished":false,"event_type":"text-generation","text":"lo"}`)
		fmt.Fprintln(w, `{"is_finished":true,"event_type":"stream-end","finish_reason":"COMPLETE"}`)
		fmt.Fprintln(w, `{"is_finished":false,"event_type":"text-generation","text":"ignored"}`)
	}))
	defer srv.Close()

	text, err := llm.Collect(llm.Stream(context.Background(), NewProvider("co-key", "", srv.URL), "hi", llm.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestProvider_StreamErrorFinish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"event_type":"text-generation","text":"par"}`)
		fmt.Fprintln(w, `{"is_finished":true,"event_type":"stream-end","finish_reason":"ERROR"}`)
	}))
	defer srv.Close()

	text, err := llm.Collect(llm.Stream(context.Background(), NewProvider("co-key", "", srv.URL), "hi", llm.Options{}))
	assert.Equal(t, "par", text)
	assert.Error(t, err)
}
