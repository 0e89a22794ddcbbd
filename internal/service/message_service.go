package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chatlink/internal/domain"
	"chatlink/internal/realtime"
	"chatlink/internal/security"
)

const maxBodyLength = 5000

// MessageService orchestrates message send, history and read-marking atop
// the store, resolving dm threads through the ConversationService and
// pushing persisted messages to live channels through the dispatcher.
type MessageService struct {
	resolver      *ConversationService
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	encryptor     *security.Encryptor
	dispatcher    *realtime.Dispatcher

	HistoryPageSize int
}

func NewMessageService(
	resolver *ConversationService,
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
	dispatcher *realtime.Dispatcher,
	historyPageSize int,
) *MessageService {
	if historyPageSize <= 0 {
		historyPageSize = 50
	}
	return &MessageService{
		resolver:        resolver,
		conversations:   conversations,
		participants:    participants,
		messages:        messages,
		users:           users,
		encryptor:       encryptor,
		dispatcher:      dispatcher,
		HistoryPageSize: historyPageSize,
	}
}

// SendMessage persists a message into the (possibly freshly created) dm
// conversation and then pushes it to every live channel of both parties.
// Dispatch happens exactly once and only after the row is durably
// committed; a message that cannot be recovered from history is never
// pushed. Delivery failures never surface to the caller.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID, body string) (*MessageResponse, error) {
	if receiverID == senderID {
		return nil, domain.ErrSelfReference
	}
	if body == "" {
		return nil, fmt.Errorf("%w: message body cannot be empty", domain.ErrInvalidInput)
	}
	if len([]rune(body)) > maxBodyLength {
		return nil, fmt.Errorf("%w: message body exceeds %d characters", domain.ErrInvalidInput, maxBodyLength)
	}

	conv, err := s.resolver.GetOrCreateDM(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptor.Encrypt(body)
	if err != nil {
		return nil, fmt.Errorf("encrypt body: %w", err)
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           encrypted,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		log.Printf("send message: touch conversation %s: %v", conv.ID, err)
	}

	// Live delivery carries the plaintext; the stored row stays encrypted.
	out := *msg
	out.Body = body
	report := s.dispatcher.Deliver(&out)
	if len(report.Failed) > 0 {
		log.Printf("send message: %d of %d channel pushes failed for message %s", len(report.Failed), report.Attempted, msg.ID)
	}

	return s.toResponse(ctx, senderID, &out), nil
}

// HistoryScope selects the conversation to read: either directly by id or
// by the peer on the other side of a dm.
type HistoryScope struct {
	ConversationID string
	PeerID         string
}

// History returns messages newest first, at most limit rows, optionally
// bounded by an exclusive created_at upper cursor. The viewer must be a
// participant; a conversation the viewer has no part in reads as not
// found.
func (s *MessageService) History(ctx context.Context, scope HistoryScope, viewerID string, limit int, before *time.Time) ([]*MessageResponse, error) {
	if limit <= 0 || limit > s.HistoryPageSize {
		limit = s.HistoryPageSize
	}

	var conversationID string
	switch {
	case scope.PeerID != "":
		if scope.PeerID == viewerID {
			return nil, domain.ErrSelfReference
		}
		conv, err := s.conversations.GetByPairKey(ctx, domain.PairKey(viewerID, scope.PeerID))
		if errors.Is(err, domain.ErrNotFound) {
			// No thread yet between these two users.
			return []*MessageResponse{}, nil
		}
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID
	case scope.ConversationID != "":
		isParticipant, err := s.participants.IsParticipant(ctx, scope.ConversationID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("check participant: %w", err)
		}
		if !isParticipant {
			return nil, domain.ErrNotFound
		}
		conversationID = scope.ConversationID
	default:
		return nil, fmt.Errorf("%w: history requires a conversation or peer", domain.ErrInvalidInput)
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID, limit, before)
	if err != nil {
		return nil, err
	}

	res := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, s.toDecryptedResponse(ctx, viewerID, m))
	}
	return res, nil
}

// MarkRead flips the read flag if and only if the caller is the message's
// receiver. Anything else reads as not found, hiding whether the row
// exists.
func (s *MessageService) MarkRead(ctx context.Context, messageID, receiverID string) (*MessageResponse, error) {
	msg, err := s.messages.MarkRead(ctx, messageID, receiverID)
	if err != nil {
		return nil, err
	}
	return s.toDecryptedResponse(ctx, receiverID, msg), nil
}

// MessageResponse is a message enriched with the viewer-relative direction
// and the sender's profile summary.
type MessageResponse struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	SenderID       string                 `json:"sender_id"`
	ReceiverID     string                 `json:"receiver_id"`
	Body           string                 `json:"body"`
	Read           bool                   `json:"read"`
	Direction      string                 `json:"direction"`
	Sender         *domain.ProfileSummary `json:"sender,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

func (s *MessageService) toDecryptedResponse(ctx context.Context, viewerID string, m *domain.Message) *MessageResponse {
	out := *m
	if dec, err := s.encryptor.Decrypt(m.Body); err == nil {
		out.Body = dec
	}
	return s.toResponse(ctx, viewerID, &out)
}

func (s *MessageService) toResponse(ctx context.Context, viewerID string, m *domain.Message) *MessageResponse {
	direction := domain.DirectionIncoming
	if m.SenderID == viewerID {
		direction = domain.DirectionOutgoing
	}
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Body:           m.Body,
		Read:           m.Read,
		Direction:      direction,
		CreatedAt:      m.CreatedAt,
	}
	if u, err := s.users.GetByID(ctx, m.SenderID); err == nil {
		resp.Sender = u.Profile()
	}
	return resp
}
