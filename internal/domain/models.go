package domain

import "time"

// Connection statuses.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
	ConnectionBlocked  = "blocked"
)

// Connection respond actions.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionBlock  = "block"
)

// Conversation kinds.
const (
	ConversationDM    = "dm"
	ConversationGroup = "group"
)

// Direction of a connection or message relative to the viewing user.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// User represents an application user together with their public profile.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          *string   `db:"email" json:"email,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	FirstName      *string   `db:"first_name" json:"first_name,omitempty"`
	LastName       *string   `db:"last_name" json:"last_name,omitempty"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ProfileSummary is the public projection of a user embedded in enriched
// responses.
type ProfileSummary struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Profile returns the public summary of the user.
func (u *User) Profile() *ProfileSummary {
	return &ProfileSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Connection is a relationship request between two users. At most one row
// exists per unordered user pair; only the addressee may change the status.
type Connection struct {
	ID          string    `db:"id" json:"id"`
	RequesterID string    `db:"requester_id" json:"requester_id"`
	AddresseeID string    `db:"addressee_id" json:"addressee_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Conversation is a message thread. For kind=dm the PairKey is the
// symmetric key of the two participants and is unique across the table.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	PairKey   *string   `db:"pair_key" json:"-"`
	IsRequest bool      `db:"is_request" json:"is_request"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ConversationParticipant records membership of a user in a conversation.
type ConversationParticipant struct {
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	UserID         string     `db:"user_id" json:"user_id"`
	JoinedAt       *time.Time `db:"joined_at" json:"joined_at,omitempty"`
}

// Message is a single direct message. Immutable except for the read flag,
// which only the receiver may flip. Body is stored encrypted at rest.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	ReceiverID     string    `db:"receiver_id" json:"receiver_id"`
	Body           string    `db:"body" json:"body"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
