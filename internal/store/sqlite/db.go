package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"chatlink/internal/domain"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// classify maps driver errors onto the domain taxonomy. Duplicate-key
// failures become domain.ErrUniqueViolation so callers branch on error
// kind, never on error text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.ErrUniqueViolation
		}
	}
	return err
}

// Migrate runs idempotent DDL for the chatlink schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users (credentials + public profile)
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        VARCHAR(50) UNIQUE NOT NULL,
			email           VARCHAR(100) UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			first_name      VARCHAR(100),
			last_name       VARCHAR(100),
			avatar_url      TEXT,
			created_at      DATETIME NOT NULL
		);`,
		// Connections: one row per unordered user pair, enforced by the
		// symmetric unique index below.
		`CREATE TABLE IF NOT EXISTS connections (
			id           TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL,
			addressee_id TEXT NOT NULL,
			status       VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL,
			FOREIGN KEY (requester_id) REFERENCES users(id),
			FOREIGN KEY (addressee_id) REFERENCES users(id)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_pair
			ON connections (min(requester_id, addressee_id), max(requester_id, addressee_id));`,
		// Conversations: dm threads are deduplicated by the unique pair_key.
		`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			kind       VARCHAR(10) NOT NULL DEFAULT 'dm',
			pair_key   TEXT UNIQUE,
			is_request BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			user_id         TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			joined_at       DATETIME,
			PRIMARY KEY (user_id, conversation_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id       TEXT NOT NULL,
			receiver_id     TEXT NOT NULL,
			body            TEXT NOT NULL,
			"read"          BOOLEAN NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_connections_requester ON connections(requester_id);`,
		`CREATE INDEX IF NOT EXISTS idx_connections_addressee ON connections(addressee_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_conv ON conversation_participants(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
