package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	store, err := Open(ctx, config.DatabaseConfig{URL: "sqlite://" + path})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(ctx))

	conv := domain.NewConversation("openai", "gpt-4o-mini")
	require.NoError(t, store.Conversations.Create(ctx, conv))

	got, err := store.Conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
