package store

import (
	"path/filepath"
	"testing"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, name+"@example.com")
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(u, "secret123"))
	return u
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")

	got, err := db.Authenticate("ALICE@example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, domain.DefaultAbout, got.About)

	_, err = db.Authenticate("alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = db.Authenticate("nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrBadCredentials)

	dup, err := domain.NewUser("alice", "other@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, db.CreateUser(dup, "secret123"), ErrConflict)

	weak, err := domain.NewUser("bob", "bob@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, db.CreateUser(weak, "123"), ErrWeakPassword)
}

func TestUserLookupUpdateAndSearch(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")
	mustUser(t, db, "alicia")
	mustUser(t, db, "bob")

	byName, err := db.UserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	_, err = db.UserByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	nick := "Al"
	updated, err := db.UpdateUser(alice.ID, ProfileUpdate{Nickname: &nick})
	require.NoError(t, err)
	assert.Equal(t, "Al", updated.Nickname)
	assert.Equal(t, domain.DefaultAbout, updated.About, "unset fields untouched")

	found, err := db.SearchUsers("ALI", alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alicia", found[0].Username)

	byEmail, err := db.SearchUsers("example.com", alice.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, byEmail, "emails are not searchable")

	none, err := db.SearchUsers("  ", alice.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFriendRequestLifecycle(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	require.NoError(t, db.SendFriendRequest(alice.ID, bob.ID))
	assert.ErrorIs(t, db.SendFriendRequest(alice.ID, bob.ID), ErrConflict)
	assert.ErrorIs(t, db.SendFriendRequest(alice.ID, alice.ID), ErrForbidden)
	assert.ErrorIs(t, db.SendFriendRequest(alice.ID, "ghost"), ErrNotFound)

	reqs, err := db.FriendRequests(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Friend{{ID: alice.ID, Username: "alice"}}, reqs)

	assert.ErrorIs(t, db.AcceptFriendRequest(alice.ID, bob.ID), ErrNotFound, "only the recipient accepts")
	require.NoError(t, db.AcceptFriendRequest(bob.ID, alice.ID))

	for _, pair := range [][2]*domain.User{{alice, bob}, {bob, alice}} {
		friends, err := db.Friends(pair[0].ID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		assert.Equal(t, pair[1].ID, friends[0].ID)
	}
	reqs, err = db.FriendRequests(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, reqs)

	require.NoError(t, db.Unfriend(bob.ID, alice.ID))
	friends, err := db.Friends(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
	assert.ErrorIs(t, db.Unfriend(bob.ID, alice.ID), ErrNotFound)
}

func TestDirectConversationIsReused(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	c1, err := db.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	c2, err := db.FindOrCreateDirect(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)
	assert.False(t, c1.IsGroup)
	assert.True(t, c1.HasMember(alice.ID))
	assert.True(t, c1.HasMember(bob.ID))

	_, err = db.FindOrCreateDirect(alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGroupMessagesAndLastMessage(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")
	carol := mustUser(t, db, "carol")

	g, err := db.CreateGroup("g1", alice.ID, []domain.UserID{bob.ID, alice.ID})
	require.NoError(t, err)
	assert.True(t, g.IsGroup)
	assert.Equal(t, alice.ID, g.GroupAdmin)
	assert.Len(t, g.Members, 2)

	m := &domain.Message{ConversationID: g.ID, Text: "hi"}
	require.NoError(t, db.AddMessage(alice.ID, m))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, domain.MessageText, m.Type)
	assert.Equal(t, "alice", m.Sender.Username)

	assert.ErrorIs(t, db.AddMessage(carol.ID, &domain.Message{ConversationID: g.ID, Text: "let me in"}), ErrForbidden)
	assert.ErrorIs(t, db.AddMessage(alice.ID, &domain.Message{ConversationID: g.ID}), domain.ErrMessageEmpty)

	reply := &domain.Message{ConversationID: g.ID, Type: domain.MessageImage, ImageURL: "/uploads/x.png"}
	require.NoError(t, db.AddMessage(bob.ID, reply))

	msgs, err := db.Messages(g.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "/uploads/x.png", msgs[1].ImageURL)

	_, err = db.Messages(g.ID, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	convs, err := db.ConversationsOf(bob.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, reply.ID, convs[0].LastMessage)

	none, err := db.ConversationsOf(carol.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGroupMemberErrors(t *testing.T) {
	db := openTestDB(t)
	alice := mustUser(t, db, "alice")
	bob := mustUser(t, db, "bob")

	_, err := db.CreateGroup("g1", alice.ID, []domain.UserID{"ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.db.Exec(`CREATE TRIGGER members_locked BEFORE INSERT ON conversation_members
		BEGIN SELECT RAISE(ABORT, 'members locked'); END`)
	require.NoError(t, err)

	_, err = db.CreateGroup("g2", alice.ID, []domain.UserID{bob.ID})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "members locked")
}
