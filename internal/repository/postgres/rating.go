package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/neuralizard/internal/domain"
)

// RatingRepository implements domain.RatingRepository
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func (r *RatingRepository) Create(ctx context.Context, rating *domain.MessageRating) error {
	query := `
		INSERT INTO message_ratings (message_id, user_id, vote, score, label, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		rating.MessageID,
		rating.UserID,
		rating.Vote,
		rating.Score,
		rating.Label,
		rating.Comment,
	).Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", notFoundOnFK(err))
	}
	return nil
}

func (r *RatingRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.MessageRating, error) {
	query := `
		SELECT id, message_id, user_id, vote, score, label, comment, created_at
		FROM message_ratings
		WHERE message_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.MessageRating
	for rows.Next() {
		var rt domain.MessageRating
		if err := rows.Scan(
			&rt.ID,
			&rt.MessageID,
			&rt.UserID,
			&rt.Vote,
			&rt.Score,
			&rt.Label,
			&rt.Comment,
			&rt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}
