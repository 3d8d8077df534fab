package domain

import (
	"context"
	"time"
)

// MaxRatingLabel bounds the rating label length.
const MaxRatingLabel = 32

// MessageRating is an additive judgement on one message.
type MessageRating struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	UserID    *string   `json:"user_id"`
	Vote      int       `json:"vote" validate:"oneof=-1 0 1"`
	Score     *int      `json:"score" validate:"omitempty,min=1,max=5"`
	Label     *string   `json:"label" validate:"omitempty,max=32"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingRepository defines the interface for rating storage
type RatingRepository interface {
	// Create assigns ID and CreatedAt. It returns ErrNotFound for an unknown message.
	Create(ctx context.Context, rating *MessageRating) error
	ListByMessage(ctx context.Context, messageID int64) ([]MessageRating, error)
}
