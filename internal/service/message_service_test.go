package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatlink/internal/domain"
	"chatlink/internal/realtime"
	"chatlink/internal/security"
	"chatlink/internal/service"
)

// fakeChannel collects delivered payloads; with a non-nil err it simulates
// a dead socket.
type fakeChannel struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (c *fakeChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *fakeChannel) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.payloads...)
}

type messageFixture struct {
	convRepo *MockConversationRepo
	partRepo *MockParticipantRepo
	msgRepo  *MockMessageRepo
	userRepo *MockUserRepo
	registry *realtime.Registry
	svc      *service.MessageService
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	encryptor, err := security.NewEncryptor([]byte("test-key"))
	require.NoError(t, err)

	f := &messageFixture{
		convRepo: new(MockConversationRepo),
		partRepo: new(MockParticipantRepo),
		msgRepo:  new(MockMessageRepo),
		userRepo: new(MockUserRepo),
		registry: realtime.NewRegistry(),
	}
	resolver := service.NewConversationService(f.convRepo)
	f.svc = service.NewMessageService(
		resolver, f.convRepo, f.partRepo, f.msgRepo, f.userRepo,
		encryptor, realtime.NewDispatcher(f.registry), 50,
	)
	return f
}

func TestSendMessage(t *testing.T) {
	pairKey := domain.PairKey("alice", "bob")
	conv := &domain.Conversation{ID: "conv-1", Kind: domain.ConversationDM, PairKey: &pairKey}

	t.Run("PersistsThenFansOut", func(t *testing.T) {
		f := newMessageFixture(t)

		var stored *domain.Message
		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(conv, nil)
		f.msgRepo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.Message)
			stored.ID = "msg-1"
			stored.CreatedAt = time.Now().UTC()
		}).Return(nil)
		f.convRepo.On("Touch", mock.Anything, "conv-1").Return(nil)
		f.userRepo.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", Username: "alice"}, nil)

		// alice on two devices, bob on one
		alicePhone := &fakeChannel{}
		aliceLaptop := &fakeChannel{}
		bobPhone := &fakeChannel{}
		f.registry.Attach("alice", alicePhone)
		f.registry.Attach("alice", aliceLaptop)
		f.registry.Attach("bob", bobPhone)

		resp, err := f.svc.SendMessage(context.Background(), "alice", "bob", "hello bob")
		require.NoError(t, err)
		assert.Equal(t, "msg-1", resp.ID)
		assert.Equal(t, "hello bob", resp.Body)
		assert.Equal(t, domain.DirectionOutgoing, resp.Direction)

		// Stored row carries ciphertext, never the plaintext.
		require.NotNil(t, stored)
		assert.NotEqual(t, "hello bob", stored.Body)
		assert.NotEmpty(t, stored.Body)

		for _, ch := range []*fakeChannel{alicePhone, aliceLaptop, bobPhone} {
			payloads := ch.received()
			require.Len(t, payloads, 1)
			var event realtime.MessageEvent
			require.NoError(t, json.Unmarshal(payloads[0], &event))
			assert.Equal(t, "message", event.Type)
			assert.Equal(t, "msg-1", event.MessageID)
			assert.Equal(t, "hello bob", event.Body)
		}
	})

	t.Run("NoDispatchWhenPersistFails", func(t *testing.T) {
		f := newMessageFixture(t)

		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(conv, nil)
		f.msgRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		bobPhone := &fakeChannel{}
		f.registry.Attach("bob", bobPhone)

		_, err := f.svc.SendMessage(context.Background(), "alice", "bob", "hello bob")
		assert.Error(t, err)
		assert.Empty(t, bobPhone.received())
	})

	t.Run("DeadChannelDoesNotFailSend", func(t *testing.T) {
		f := newMessageFixture(t)

		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(conv, nil)
		f.msgRepo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			m.ID = "msg-2"
			m.CreatedAt = time.Now().UTC()
		}).Return(nil)
		f.convRepo.On("Touch", mock.Anything, "conv-1").Return(nil)
		f.userRepo.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", Username: "alice"}, nil)

		dead := &fakeChannel{err: realtime.ErrChannelClosed}
		live := &fakeChannel{}
		f.registry.Attach("bob", dead)
		f.registry.Attach("bob", live)

		resp, err := f.svc.SendMessage(context.Background(), "alice", "bob", "still delivered")
		require.NoError(t, err)
		assert.Equal(t, "msg-2", resp.ID)
		assert.Len(t, live.received(), 1)
	})

	t.Run("RecipientOffline", func(t *testing.T) {
		f := newMessageFixture(t)

		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(conv, nil)
		f.msgRepo.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			m.ID = "msg-3"
			m.CreatedAt = time.Now().UTC()
		}).Return(nil)
		f.convRepo.On("Touch", mock.Anything, "conv-1").Return(nil)
		f.userRepo.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", Username: "alice"}, nil)

		// Nobody connected; the send still succeeds.
		resp, err := f.svc.SendMessage(context.Background(), "alice", "bob", "read it later")
		require.NoError(t, err)
		assert.Equal(t, "msg-3", resp.ID)
	})

	t.Run("SelfMessage", func(t *testing.T) {
		f := newMessageFixture(t)
		_, err := f.svc.SendMessage(context.Background(), "alice", "alice", "hi me")
		assert.ErrorIs(t, err, domain.ErrSelfReference)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		f := newMessageFixture(t)
		_, err := f.svc.SendMessage(context.Background(), "alice", "bob", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("BodyTooLong", func(t *testing.T) {
		f := newMessageFixture(t)
		_, err := f.svc.SendMessage(context.Background(), "alice", "bob", strings.Repeat("x", 5001))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestHistory(t *testing.T) {
	pairKey := domain.PairKey("alice", "bob")
	conv := &domain.Conversation{ID: "conv-1", Kind: domain.ConversationDM, PairKey: &pairKey}

	t.Run("ByPeerDecrypts", func(t *testing.T) {
		f := newMessageFixture(t)
		encryptor, err := security.NewEncryptor([]byte("test-key"))
		require.NoError(t, err)
		cipher, err := encryptor.Encrypt("secret text")
		require.NoError(t, err)

		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(conv, nil)
		f.msgRepo.On("ListForConversation", mock.Anything, "conv-1", 50, (*time.Time)(nil)).Return([]*domain.Message{
			{ID: "msg-1", ConversationID: "conv-1", SenderID: "bob", ReceiverID: "alice", Body: cipher},
		}, nil)
		f.userRepo.On("GetByID", mock.Anything, "bob").Return(&domain.User{ID: "bob", Username: "bob"}, nil)

		msgs, err := f.svc.History(context.Background(), service.HistoryScope{PeerID: "bob"}, "alice", 0, nil)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "secret text", msgs[0].Body)
		assert.Equal(t, domain.DirectionIncoming, msgs[0].Direction)
	})

	t.Run("ByPeerNoThreadYet", func(t *testing.T) {
		f := newMessageFixture(t)
		f.convRepo.On("GetByPairKey", mock.Anything, pairKey).Return(nil, domain.ErrNotFound)

		msgs, err := f.svc.History(context.Background(), service.HistoryScope{PeerID: "bob"}, "alice", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("ByConversationRequiresMembership", func(t *testing.T) {
		f := newMessageFixture(t)
		f.partRepo.On("IsParticipant", mock.Anything, "conv-1", "mallory").Return(false, nil)

		_, err := f.svc.History(context.Background(), service.HistoryScope{ConversationID: "conv-1"}, "mallory", 0, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.msgRepo.AssertNotCalled(t, "ListForConversation")
	})

	t.Run("LimitClamped", func(t *testing.T) {
		f := newMessageFixture(t)
		f.partRepo.On("IsParticipant", mock.Anything, "conv-1", "alice").Return(true, nil)
		f.msgRepo.On("ListForConversation", mock.Anything, "conv-1", 50, (*time.Time)(nil)).Return([]*domain.Message{}, nil)

		_, err := f.svc.History(context.Background(), service.HistoryScope{ConversationID: "conv-1"}, "alice", 9999, nil)
		assert.NoError(t, err)
		f.msgRepo.AssertExpectations(t)
	})

	t.Run("EmptyScope", func(t *testing.T) {
		f := newMessageFixture(t)
		_, err := f.svc.History(context.Background(), service.HistoryScope{}, "alice", 0, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("ReceiverMarksRead", func(t *testing.T) {
		f := newMessageFixture(t)
		encryptor, err := security.NewEncryptor([]byte("test-key"))
		require.NoError(t, err)
		cipher, err := encryptor.Encrypt("hello")
		require.NoError(t, err)

		f.msgRepo.On("MarkRead", mock.Anything, "msg-1", "bob").Return(&domain.Message{
			ID: "msg-1", SenderID: "alice", ReceiverID: "bob", Body: cipher, Read: true,
		}, nil)
		f.userRepo.On("GetByID", mock.Anything, "alice").Return(&domain.User{ID: "alice", Username: "alice"}, nil)

		msg, err := f.svc.MarkRead(context.Background(), "msg-1", "bob")
		require.NoError(t, err)
		assert.True(t, msg.Read)
		assert.Equal(t, "hello", msg.Body)
	})

	t.Run("NonReceiverReadsAsNotFound", func(t *testing.T) {
		f := newMessageFixture(t)
		f.msgRepo.On("MarkRead", mock.Anything, "msg-1", "mallory").Return(nil, domain.ErrNotFound)

		_, err := f.svc.MarkRead(context.Background(), "msg-1", "mallory")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
