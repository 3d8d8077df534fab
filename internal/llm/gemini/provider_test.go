package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"

	"github.com/Rrens/neuralizard/internal/llm"
)

func TestProvider_Metadata(t *testing.T) {
	p := NewProvider("key", "", "")
	assert.Equal(t, "google", p.Name())
	assert.Equal(t, defaultModel, p.DefaultModel())
	assert.True(t, p.IsConfigured())
	assert.Contains(t, p.AvailableModels(), defaultModel)
}

func TestProvider_MissingKey(t *testing.T) {
	p := NewProvider("", "gemini-2.5-pro", "")

	_, err := p.Complete(context.Background(), "hi", llm.Options{})
	assert.ErrorIs(t, err, llm.ErrMissingCredential)

	_, err = llm.Collect(llm.Stream(context.Background(), p, "hi", llm.Options{}))
	assert.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestTextOf(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{
			"text parts joined",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("Hel"), genai.Blob{MIMEType: "image/png"}, genai.Text("lo")}},
			}}},
			"Hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textOf(tt.resp))
		})
	}
}
