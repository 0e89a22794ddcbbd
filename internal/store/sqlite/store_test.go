package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlink/internal/domain"
	"chatlink/internal/store/sqlite"
)

// newTestDB opens a private in-memory database, migrated and pinned to a
// single connection so the shared-cache memory DB survives the pool.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, HashedPassword: "x"}
	require.NoError(t, sqlite.NewUserRepo(db).Create(context.Background(), u))
	return u
}

func seedDM(t *testing.T, db *sql.DB, a, b string) *domain.Conversation {
	t.Helper()
	pairKey := domain.PairKey(a, b)
	c := &domain.Conversation{Kind: domain.ConversationDM, PairKey: &pairKey}
	require.NoError(t, sqlite.NewConversationRepo(db).CreateDM(context.Background(), c, []string{a, b}))
	return c
}

func TestConnectionSymmetricIndex(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewConnectionRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	first := &domain.Connection{RequesterID: alice.ID, AddresseeID: bob.ID}
	require.NoError(t, repo.Insert(ctx, first))

	// The reversed orientation collides on the expression index and comes
	// back as the typed classification, not as driver error text.
	reversed := &domain.Connection{RequesterID: bob.ID, AddresseeID: alice.ID}
	err := repo.Insert(ctx, reversed)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUniqueViolation)

	// Same orientation duplicates too.
	again := &domain.Connection{RequesterID: alice.ID, AddresseeID: bob.ID}
	assert.ErrorIs(t, repo.Insert(ctx, again), domain.ErrUniqueViolation)

	// Both lookup orders resolve to the surviving canonical row.
	got, err := repo.GetByPair(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	got, err = repo.GetByPair(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, alice.ID, got.RequesterID)
}

func TestConversationPairKeyUnique(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewConversationRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv := seedDM(t, db, alice.ID, bob.ID)

	pairKey := domain.PairKey(bob.ID, alice.ID)
	dup := &domain.Conversation{Kind: domain.ConversationDM, PairKey: &pairKey}
	err := repo.CreateDM(ctx, dup, []string{bob.ID, alice.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUniqueViolation)

	got, err := repo.GetByPairKey(ctx, pairKey)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestMessageHistoryCursor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewMessageRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv := seedDM(t, db, alice.ID, bob.ID)

	var msgs []*domain.Message
	for i := 0; i < 5; i++ {
		m := &domain.Message{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			ReceiverID:     bob.ID,
			Body:           fmt.Sprintf("body %d", i),
		}
		require.NoError(t, repo.Insert(ctx, m))
		msgs = append(msgs, m)
		time.Sleep(2 * time.Millisecond) // distinct created_at per row
	}

	// Newest first, strictly descending.
	page, err := repo.ListForConversation(ctx, conv.ID, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 5)
	for i := 1; i < len(page); i++ {
		assert.True(t, page[i].CreatedAt.Before(page[i-1].CreatedAt),
			"expected %s before %s", page[i].CreatedAt, page[i-1].CreatedAt)
	}

	// before is an exclusive upper bound: the row at the cursor and
	// everything newer is excluded.
	cursor := msgs[2].CreatedAt
	page, err = repo.ListForConversation(ctx, conv.ID, 10, &cursor)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, msgs[1].ID, page[0].ID)
	assert.Equal(t, msgs[0].ID, page[1].ID)

	// Limit cuts the page at the newest end.
	page, err = repo.ListForConversation(ctx, conv.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, msgs[4].ID, page[0].ID)
}

func TestMessageMarkReadReceiverOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := sqlite.NewMessageRepo(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	mallory := seedUser(t, db, "mallory")
	conv := seedDM(t, db, alice.ID, bob.ID)

	m := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		ReceiverID:     bob.ID,
		Body:           "for bob only",
	}
	require.NoError(t, repo.Insert(ctx, m))

	// Neither a stranger nor the sender may flip the flag; the row stays
	// unread and the miss reads as not found.
	_, err := repo.MarkRead(ctx, m.ID, mallory.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.MarkRead(ctx, m.ID, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.Read)

	updated, err := repo.MarkRead(ctx, m.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, updated.Read)

	_, err = repo.MarkRead(ctx, "no-such-id", bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
