package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatlink/internal/domain"
	"chatlink/internal/service"
)

func TestGetOrCreateDM(t *testing.T) {
	pairKey := domain.PairKey("alice", "bob")

	t.Run("ReturnsExisting", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := service.NewConversationService(convRepo)

		existing := &domain.Conversation{ID: "conv-1", Kind: domain.ConversationDM, PairKey: &pairKey}
		convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(existing, nil)

		conv, err := svc.GetOrCreateDM(context.Background(), "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, "conv-1", conv.ID)
		convRepo.AssertNotCalled(t, "CreateDM")
	})

	t.Run("SymmetricLookup", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := service.NewConversationService(convRepo)

		existing := &domain.Conversation{ID: "conv-1", Kind: domain.ConversationDM, PairKey: &pairKey}
		convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(existing, nil)

		// Reversed argument order resolves to the same thread.
		conv, err := svc.GetOrCreateDM(context.Background(), "bob", "alice")
		assert.NoError(t, err)
		assert.Equal(t, "conv-1", conv.ID)
	})

	t.Run("CreatesOnFirstUse", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := service.NewConversationService(convRepo)

		convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(nil, domain.ErrNotFound)
		convRepo.On("CreateDM", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.Kind == domain.ConversationDM && c.PairKey != nil && *c.PairKey == pairKey
		}), []string{"alice", "bob"}).Return(nil)

		conv, err := svc.GetOrCreateDM(context.Background(), "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, domain.ConversationDM, conv.Kind)
	})

	t.Run("LostRaceFetchesWinner", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := service.NewConversationService(convRepo)

		winner := &domain.Conversation{ID: "conv-winner", Kind: domain.ConversationDM, PairKey: &pairKey}
		convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(nil, domain.ErrNotFound).Once()
		convRepo.On("CreateDM", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrUniqueViolation)
		convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(winner, nil).Once()

		conv, err := svc.GetOrCreateDM(context.Background(), "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, "conv-winner", conv.ID)
	})

	t.Run("SelfDM", func(t *testing.T) {
		convRepo := new(MockConversationRepo)
		svc := service.NewConversationService(convRepo)

		_, err := svc.GetOrCreateDM(context.Background(), "alice", "alice")
		assert.ErrorIs(t, err, domain.ErrSelfReference)
		convRepo.AssertNotCalled(t, "GetByPairKey")
	})
}

func TestListInbox(t *testing.T) {
	convRepo := new(MockConversationRepo)
	svc := service.NewConversationService(convRepo)

	convRepo.On("ListForUser", mock.Anything, "alice", 20).Return([]*domain.Conversation{
		{ID: "conv-2"},
		{ID: "conv-1"},
	}, nil)

	convs, err := svc.ListInbox(context.Background(), "alice", 0)
	assert.NoError(t, err)
	assert.Len(t, convs, 2)
	assert.Equal(t, "conv-2", convs[0].ID)
}
