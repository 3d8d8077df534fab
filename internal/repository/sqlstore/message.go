package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/neuralizard/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, role, content, COALESCE(provider, ''), COALESCE(model, ''),
	COALESCE(category, ''), prompt_tokens, response_tokens, latency_ms, first_token_ms, COALESCE(error, ''), created_at`

// Create inserts a new message and touches the owning conversation.
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	now := time.Now().UTC()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, message.ConversationID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, role, content, provider, model, category,
				prompt_tokens, response_tokens, latency_ms, first_token_ms, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			message.ConversationID,
			string(message.Role),
			message.Content,
			nullString(message.Provider),
			nullString(message.Model),
			nullString(message.Category),
			message.PromptTokens,
			message.ResponseTokens,
			message.LatencyMs,
			message.FirstTokenMs,
			nullString(message.Error),
			now,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
			now, message.ConversationID); err != nil {
			return err
		}

		message.ID = id
		message.CreatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) Update(ctx context.Context, id int64, upd domain.MessageUpdate) error {
	query := `
		UPDATE messages
		SET content = ?, prompt_tokens = ?, response_tokens = ?, latency_ms = ?,
			first_token_ms = ?, error = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		upd.Content,
		upd.PromptTokens,
		upd.ResponseTokens,
		upd.LatencyMs,
		upd.FirstTokenMs,
		nullString(upd.Error),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	// MySQL reports zero affected rows when the values are unchanged, so
	// existence is checked separately.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
	}
	return nil
}

// ListByConversation returns messages in chronological order.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id
	`
	return r.list(ctx, query, conversationID)
}

func (r *MessageRepository) ListByConversations(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID][]domain.Message, error) {
	out := make(map[uuid.UUID][]domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}

	query := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id IN (` + placeholders(len(args)) + `)
		ORDER BY id
	`
	messages, err := r.list(ctx, query, args...)
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
		ORDER BY id DESC
		LIMIT ?
	`
	return r.list(ctx, query, limit)
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
