package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatlink/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Insert(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, "read", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.Read, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", classify(err))
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, body, "read", created_at
		FROM messages
		WHERE id = $1
	`
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Body,
		&m.Read,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListForConversation returns messages newest first. A non-nil before acts
// as an exclusive created_at upper bound for cursor pagination.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, body, "read", created_at
		FROM messages
		WHERE conversation_id = $1
	`
	args := []any{conversationID}
	if before != nil {
		query += ` AND created_at < $2 ORDER BY created_at DESC LIMIT $3`
		args = append(args, before.UTC(), limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Body,
			&m.Read,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MarkRead flips the read flag only when the caller is the stored receiver.
// A miss on either condition reports domain.ErrNotFound, deliberately not
// revealing whether the row exists.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, receiverID string) (*domain.Message, error) {
	query := `
		UPDATE messages SET "read" = TRUE
		WHERE id = $1 AND receiver_id = $2
		RETURNING id, conversation_id, sender_id, receiver_id, body, "read", created_at
	`
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, query, messageID, receiverID).Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.ReceiverID,
		&m.Body,
		&m.Read,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return m, nil
}
