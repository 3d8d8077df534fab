package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/neuralizard/internal/domain"
)

// RatingRepository implements domain.RatingRepository
type RatingRepository struct {
	db *sql.DB
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) Create(ctx context.Context, rating *domain.MessageRating) error {
	now := time.Now().UTC()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, rating.MessageID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO message_ratings (message_id, user_id, vote, score, label, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			rating.MessageID,
			rating.UserID,
			rating.Vote,
			rating.Score,
			rating.Label,
			rating.Comment,
			now,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rating.ID = id
		rating.CreatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.MessageRating, error) {
	query := `
		SELECT id, message_id, user_id, vote, score, label, comment, created_at
		FROM message_ratings
		WHERE message_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, messageID)
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
