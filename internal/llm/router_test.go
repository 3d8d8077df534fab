package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/llm"
)

func newTestRouter(keys map[string]string) (*llm.Router, *int) {
	built := 0
	r := llm.NewRouter("openai")
	for _, name := range []string{"openai", "anthropic", "google"} {
		name := name
		r.Register(name, keys[name], func(string) llm.Provider {
			built++
			return &stubProvider{name: name}
		})
	}
	return r, &built
}

func TestRouter_Resolve(t *testing.T) {
	r, built := newTestRouter(map[string]string{"openai": "sk-1", "anthropic": "  "})

	t.Run("case insensitive", func(t *testing.T) {
		p, err := r.Resolve("  OpenAI ")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("blank resolves default", func(t *testing.T) {
		p, err := r.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("instance cached", func(t *testing.T) {
		_, _ = r.Resolve("openai")
		_, _ = r.Resolve("openai")
		assert.Equal(t, 1, *built)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := r.Resolve("bard")
		assert.ErrorIs(t, err, llm.ErrUnknownProvider)
		assert.Contains(t, err.Error(), "bard")
	})

	t.Run("blank credential", func(t *testing.T) {
		_, err := r.Resolve("anthropic")
		assert.ErrorIs(t, err, llm.ErrMissingCredential)
	})

	t.Run("absent credential", func(t *testing.T) {
		_, err := r.Resolve("google")
		assert.ErrorIs(t, err, llm.ErrMissingCredential)
	})
}

func TestRouter_Available(t *testing.T) {
	r, _ := newTestRouter(map[string]string{"google": "g", "openai": "o"})

	assert.Equal(t, []string{"openai", "google"}, r.Available())
	assert.Equal(t, []string{"openai", "anthropic", "google"}, r.Known())
	assert.True(t, r.IsAvailable("GOOGLE"))
	assert.False(t, r.IsAvailable("anthropic"))
	assert.False(t, r.IsAvailable("nope"))
}

func TestRouter_Info(t *testing.T) {
	r, _ := newTestRouter(map[string]string{"openai": "o"})

	infos := r.Info()
	require.Len(t, infos, 3)
	assert.Equal(t, "openai", infos[0].Name)
	assert.True(t, infos[0].Default)
	assert.True(t, infos[0].Configured)
	assert.False(t, infos[1].Configured)
	assert.Equal(t, []string{"m1", "m2"}, infos[2].Models)
}

func TestRouter_RegisterProvider(t *testing.T) {
	r := llm.NewRouter("")
	r.RegisterProvider(&stubProvider{name: "Local"})

	p, err := r.Resolve("local")
	require.NoError(t, err)
	assert.Equal(t, "Local", p.Name())
}
