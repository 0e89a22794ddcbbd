package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users and their
// profiles.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	Search(ctx context.Context, query string, limit int) ([]*User, error)
}

// ConnectionRepository defines persistence operations for connections.
// Insert reports a symmetric-pair duplicate as an error wrapping
// ErrUniqueViolation.
type ConnectionRepository interface {
	Insert(ctx context.Context, c *Connection) error
	GetByID(ctx context.Context, id string) (*Connection, error)
	GetByPair(ctx context.Context, userA, userB string) (*Connection, error)
	ListForUser(ctx context.Context, userID, status string) ([]*Connection, error)
	UpdateStatus(ctx context.Context, id, status string) (*Connection, error)
}

// ConversationRepository defines persistence operations for conversations.
// CreateDM inserts the conversation and its participant rows in one
// transaction and reports a pair_key duplicate as an error wrapping
// ErrUniqueViolation.
type ConversationRepository interface {
	CreateDM(ctx context.Context, c *Conversation, participantIDs []string) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*Conversation, error)
	Touch(ctx context.Context, id string) error
}

// ParticipantRepository defines operations around conversation membership.
type ParticipantRepository interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, conversationID string) ([]string, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Insert(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListForConversation(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*Message, error)
	MarkRead(ctx context.Context, messageID, receiverID string) (*Message, error)
}
