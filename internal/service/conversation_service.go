package service

import (
	"context"
	"errors"
	"fmt"

	"chatlink/internal/domain"
)

// ConversationService resolves dm threads idempotently and serves the
// inbox.
type ConversationService struct {
	conversations domain.ConversationRepository
}

func NewConversationService(conversations domain.ConversationRepository) *ConversationService {
	return &ConversationService{conversations: conversations}
}

// GetOrCreateDM returns the single dm conversation for the unordered pair
// {userA, userB}, creating it (plus both participant rows) on first use.
// The pair key is symmetric, so both argument orders resolve to the same
// thread; a concurrent duplicate create loses on the pair_key constraint
// and falls back to fetching the winner's row.
func (s *ConversationService) GetOrCreateDM(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	if userA == userB {
		return nil, domain.ErrSelfReference
	}

	pairKey := domain.PairKey(userA, userB)
	conv, err := s.conversations.GetByPairKey(ctx, pairKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup dm: %w", err)
	}

	conv = &domain.Conversation{
		Kind:    domain.ConversationDM,
		PairKey: &pairKey,
	}
	err = s.conversations.CreateDM(ctx, conv, []string{userA, userB})
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrUniqueViolation) {
		return nil, err
	}

	// Lost the create race; the winner's row is the canonical one.
	existing, err := s.conversations.GetByPairKey(ctx, pairKey)
	if err != nil {
		return nil, fmt.Errorf("fetch existing dm: %w", err)
	}
	return existing, nil
}

// ListInbox returns the viewer's conversations, most recently active first.
func (s *ConversationService) ListInbox(ctx context.Context, viewerID string, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.conversations.ListForUser(ctx, viewerID, limit)
}
