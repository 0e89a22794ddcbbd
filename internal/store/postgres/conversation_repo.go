package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatlink/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

// CreateDM inserts the conversation and both participant rows in one
// transaction. A duplicate pair_key surfaces as domain.ErrUniqueViolation
// with nothing committed, so a concurrent loser can fall back to a fetch.
func (r *ConversationRepo) CreateDM(ctx context.Context, c *domain.Conversation, participantIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Kind == "" {
		c.Kind = domain.ConversationDM
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, kind, pair_key, is_request, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Kind, c.PairKey, c.IsRequest, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert conversation: %w", classify(err))
	}

	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (user_id, conversation_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, uid, c.ID, now); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, kind, pair_key, is_request, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *ConversationRepo) GetByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	query := `
		SELECT id, kind, pair_key, is_request, created_at, updated_at
		FROM conversations
		WHERE pair_key = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, pairKey))
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	query := `
		SELECT c.id, c.kind, c.pair_key, c.is_request, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(
			&c.ID,
			&c.Kind,
			&c.PairKey,
			&c.IsRequest,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Touch bumps updated_at so the conversation sorts to the top of the inbox.
func (r *ConversationRepo) Touch(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $1 WHERE id = $2
	`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) scanOne(row *sql.Row) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := row.Scan(
		&c.ID,
		&c.Kind,
		&c.PairKey,
		&c.IsRequest,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}
