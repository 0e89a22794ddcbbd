package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"chatlink/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// classify maps driver errors onto the domain taxonomy. Duplicate-key
// failures become domain.ErrUniqueViolation so callers branch on error
// kind, never on error text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUniqueViolation
	}
	return err
}

// Migrate runs idempotent DDL for the chatlink schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              UUID         PRIMARY KEY,
			username        VARCHAR(50)  UNIQUE NOT NULL,
			email           VARCHAR(100) UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			first_name      VARCHAR(100),
			last_name       VARCHAR(100),
			avatar_url      TEXT,
			created_at      TIMESTAMPTZ  NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS connections (
			id           UUID        PRIMARY KEY,
			requester_id UUID        NOT NULL REFERENCES users(id),
			addressee_id UUID        NOT NULL REFERENCES users(id),
			status       VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_pair
			ON connections (LEAST(requester_id, addressee_id), GREATEST(requester_id, addressee_id))`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id         UUID        PRIMARY KEY,
			kind       VARCHAR(10) NOT NULL DEFAULT 'dm',
			pair_key   TEXT        UNIQUE,
			is_request BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			user_id         UUID NOT NULL REFERENCES users(id),
			conversation_id UUID NOT NULL REFERENCES conversations(id),
			joined_at       TIMESTAMPTZ,
			PRIMARY KEY (user_id, conversation_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              UUID        PRIMARY KEY,
			conversation_id UUID        NOT NULL REFERENCES conversations(id),
			sender_id       UUID        NOT NULL REFERENCES users(id),
			receiver_id     UUID        NOT NULL REFERENCES users(id),
			body            TEXT        NOT NULL,
			"read"          BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_connections_requester ON connections(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_addressee ON connections(addressee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_conv ON conversation_participants(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
