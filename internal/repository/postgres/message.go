package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/neuralizard/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `id, conversation_id, role, content, COALESCE(provider, ''), COALESCE(model, ''),
	COALESCE(category, ''), prompt_tokens, response_tokens, latency_ms, first_token_ms, COALESCE(error, ''), created_at`

// Create inserts a new message and touches the owning conversation.
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, role, content, provider, model, category,
				prompt_tokens, response_tokens, latency_ms, first_token_ms, error)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, NULLIF($11, ''))
			RETURNING id, created_at
		`,
			message.ConversationID,
			string(message.Role),
			message.Content,
			message.Provider,
			message.Model,
			message.Category,
			message.PromptTokens,
			message.ResponseTokens,
			message.LatencyMs,
			message.FirstTokenMs,
			message.Error,
		).Scan(&message.ID, &message.CreatedAt)
		if err != nil {
			return notFoundOnFK(err)
		}

		_, err = tx.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`,
			message.ConversationID, message.CreatedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) Update(ctx context.Context, id int64, upd domain.MessageUpdate) error {
	query := `
		UPDATE messages
		SET content = $2, prompt_tokens = $3, response_tokens = $4, latency_ms = $5,
			first_token_ms = $6, error = NULLIF($7, '')
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id,
		upd.Content,
		upd.PromptTokens,
		upd.ResponseTokens,
		upd.LatencyMs,
		upd.FirstTokenMs,
		upd.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByConversation returns messages in chronological order.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, conversationID)
}

func (r *MessageRepository) ListByConversations(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID][]domain.Message, error) {
	out := make(map[uuid.UUID][]domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(conversationIDs))
	for i, id := range conversationIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ANY($1::uuid[])
		ORDER BY created_at, id
	`
	messages, err := r.list(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		out[m.ConversationID] = append(out[m.ConversationID], m)
	}
	return out, nil
}

func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var roleStr string

		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&roleStr,
			&m.Content,
			&m.Provider,
			&m.Model,
			&m.Category,
			&m.PromptTokens,
			&m.ResponseTokens,
			&m.LatencyMs,
			&m.FirstTokenMs,
			&m.Error,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
