package domain

import "context"

// Store bundles the repositories of one backend.
type Store struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Ratings       RatingRepository

	ping  func(context.Context) error
	close func() error
}

// NewStore assembles a Store. ping and close may be nil.
func NewStore(c ConversationRepository, m MessageRepository, r RatingRepository, ping func(context.Context) error, close func() error) *Store {
	return &Store{Conversations: c, Messages: m, Ratings: r, ping: ping, close: close}
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
