package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesthub/internal/model"
)

type switchable struct{ id *model.Identity }

func (s *switchable) Identity() *model.Identity { return s.id }

var (
	alice = &model.Identity{ID: "stu-alice", Name: "Alice", Role: model.RoleStudent}
	ben   = &model.Identity{ID: "stu-ben", Name: "Ben", Role: model.RoleStudent}
	grace = &model.Identity{ID: "adm-grace", Name: "Grace", Role: model.RoleAdmin}
)

func newStore() (*Store, *switchable) {
	who := &switchable{}
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	s := New(who).WithClock(func() time.Time {
		tick++
		return t0.Add(time.Duration(tick) * time.Minute)
	})
	return s, who
}

func TestSendMessage_AdminSeesOneUnread(t *testing.T) {
	s, who := newStore()

	who.id = alice
	msg, err := s.SendMessage("When is the deadline?", "")
	require.NoError(t, err)
	assert.Equal(t, model.AdminParty, msg.RecipientID)
	assert.False(t, msg.Read)
	assert.NotEmpty(t, msg.ID)

	who.id = grace
	assert.Equal(t, 1, s.GetUnreadCount())
	threads := s.GetAllConversations()
	require.Len(t, threads, 1)
	assert.Equal(t, "stu-alice", threads[0].StudentID)
	assert.Equal(t, "Alice", threads[0].StudentName)
	assert.Equal(t, 1, threads[0].UnreadCount)

	who.id = alice
	assert.Equal(t, 0, s.GetUnreadCount())
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	s, who := newStore()
	who.id = alice
	msg, err := s.SendMessage("hi", "")
	require.NoError(t, err)

	who.id = grace
	assert.Equal(t, 1, s.MarkAsRead(msg.ID, "unknown"))
	assert.Equal(t, 0, s.MarkAsRead(msg.ID))
	assert.Equal(t, 0, s.GetUnreadCount())
	assert.True(t, s.GetMyConversation()[0].Read)
}

func TestGetAllConversations_GroupsByStudent(t *testing.T) {
	s, who := newStore()

	who.id = alice
	_, _ = s.SendMessage("question one", "")
	who.id = ben
	_, _ = s.SendMessage("hello from ben", "")
	who.id = grace
	reply, err := s.SendMessage("answer for alice", alice.ID)
	require.NoError(t, err)

	threads := s.GetAllConversations()
	require.Len(t, threads, 2)
	assert.Equal(t, "stu-alice", threads[0].StudentID)
	assert.Equal(t, reply.ID, threads[0].LastMessage.ID)
	assert.Len(t, threads[0].Messages, 2)
	assert.Equal(t, 1, threads[0].UnreadCount)
	assert.Equal(t, "stu-ben", threads[1].StudentID)

	who.id = alice
	mine := s.GetMyConversation()
	require.Len(t, mine, 2)
	assert.Equal(t, "question one", mine[0].Text)
	assert.Equal(t, "answer for alice", mine[1].Text)
	assert.Equal(t, 1, s.GetUnreadCount())

	who.id = ben
	assert.Len(t, s.GetMyConversation(), 1)
	assert.Equal(t, 0, s.GetUnreadCount())
}

func TestSendMessage_Errors(t *testing.T) {
	s, who := newStore()
	_, err := s.SendMessage("hi", "")
	assert.ErrorIs(t, err, ErrNoIdentity)

	who.id = alice
	_, err = s.SendMessage("   ", "")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, s.GetMyConversation())
}

func TestGetUnreadCount_StudentWithOneOfTwoRepliesRead(t *testing.T) {
	s, who := newStore()

	who.id = grace
	first, err := s.SendMessage("Your abstract is approved", alice.ID)
	require.NoError(t, err)
	_, err = s.SendMessage("Poster size is A1", alice.ID)
	require.NoError(t, err)

	who.id = alice
	assert.Equal(t, 2, s.GetUnreadCount())
	assert.Equal(t, 1, s.MarkAsRead(first.ID))
	assert.Equal(t, 1, s.GetUnreadCount())

	who.id = ben
	assert.Equal(t, 0, s.GetUnreadCount())
}
