package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatlink/internal/domain"
)

type ConnectionRepo struct {
	db *sql.DB
}

func NewConnectionRepo(db *sql.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

var _ domain.ConnectionRepository = (*ConnectionRepo)(nil)

func (r *ConnectionRepo) Insert(ctx context.Context, c *domain.Connection) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = domain.ConnectionPending
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connections (id, requester_id, addressee_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.RequesterID, c.AddresseeID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert connection: %w", classify(err))
	}
	return nil
}

func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM connections
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *ConnectionRepo) GetByPair(ctx context.Context, userA, userB string) (*domain.Connection, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM connections
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userA, userB))
}

func (r *ConnectionRepo) ListForUser(ctx context.Context, userID, status string) ([]*domain.Connection, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, updated_at
		FROM connections
		WHERE (requester_id = $1 OR addressee_id = $1)
	`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var res []*domain.Connection
	for rows.Next() {
		c := &domain.Connection{}
		if err := rows.Scan(
			&c.ID,
			&c.RequesterID,
			&c.AddresseeID,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConnectionRepo) UpdateStatus(ctx context.Context, id, status string) (*domain.Connection, error) {
	query := `
		UPDATE connections SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, requester_id, addressee_id, status, created_at, updated_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, status, time.Now().UTC(), id))
}

func (r *ConnectionRepo) scanOne(row *sql.Row) (*domain.Connection, error) {
	c := &domain.Connection{}
	err := row.Scan(
		&c.ID,
		&c.RequesterID,
		&c.AddresseeID,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}
