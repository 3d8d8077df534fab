package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	titleLockPrefix   = "neuralizard:title:"
	defaultTitleLease = 30 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TitleLock serialises title inference per conversation across processes.
type TitleLock struct {
	client *Client
	ttl    time.Duration
}

// NewTitleLock creates a lock whose lease expires after ttl.
func NewTitleLock(client *Client, ttl time.Duration) *TitleLock {
	if ttl <= 0 {
		ttl = defaultTitleLease
	}
	return &TitleLock{client: client, ttl: ttl}
}

// Acquire takes the lease for conversationID. ok is false when another
// worker holds it; release is then nil.
func (l *TitleLock) Acquire(ctx context.Context, conversationID uuid.UUID) (func(), bool, error) {
	key := titleLockPrefix + conversationID.String()
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire title lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			log.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("Failed to release title lock")
		}
	}
	return release, true, nil
}
