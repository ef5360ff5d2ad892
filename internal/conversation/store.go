// Package conversation keeps the in-memory direct message log between
// students and the admin pool. Nothing here is persisted or sent to the
// backend; a restart loses the history.
package conversation

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contesthub/internal/model"
)

var (
	ErrNoIdentity = errors.New("conversation: not logged in")
	ErrEmptyText  = errors.New("conversation: message text is empty")
)

// Identities reports who is asking.
type Identities interface {
	Identity() *model.Identity
}

// Store holds the student/admin conversation in memory.
type Store struct {
	ids   Identities
	now   func() time.Time
	newID func() string

	mu       sync.RWMutex
	messages []model.ConversationMessage
}

// New creates an empty conversation store.
func New(ids Identities) *Store {
	return &Store{
		ids:   ids,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock replaces the clock used to stamp messages.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SendMessage appends an unread message from the current identity. An
// empty recipientID addresses the admin pool.
func (s *Store) SendMessage(text, recipientID string) (model.ConversationMessage, error) {
	id := s.ids.Identity()
	if id == nil {
		return model.ConversationMessage{}, ErrNoIdentity
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ConversationMessage{}, ErrEmptyText
	}
	if recipientID == "" {
		recipientID = model.AdminParty
	}

	msg := model.ConversationMessage{
		ID:          s.newID(),
		SenderID:    id.ID,
		SenderName:  id.Name,
		SenderRole:  id.Role,
		RecipientID: recipientID,
		Text:        text,
		Timestamp:   s.now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// MarkAsRead sets the read flag on exactly the given ids. Unknown ids are
// ignored and a message never becomes unread again.
func (s *Store) MarkAsRead(ids ...string) int {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.messages {
		if want[s.messages[i].ID] && !s.messages[i].Read {
			s.messages[i].Read = true
			n++
		}
	}
	return n
}

// GetMyConversation returns every message the current identity sent or
// received, oldest first. Admins receive messages addressed to the pool.
func (s *Store) GetMyConversation() []model.ConversationMessage {
	id := s.ids.Identity()
	out := []model.ConversationMessage{}
	if id == nil {
		return out
	}
	s.mu.RLock()
	for _, m := range s.messages {
		if m.SenderID == id.ID || m.RecipientID == id.ID || (id.IsAdmin() && m.RecipientID == model.AdminParty) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sortByTime(out)
	return out
}

// GetAllConversations groups every message by its student party, most
// recent thread first. Unread counts only include messages from the student.
func (s *Store) GetAllConversations() []model.Thread {
	s.mu.RLock()
	msgs := append([]model.ConversationMessage(nil), s.messages...)
	s.mu.RUnlock()
	sortByTime(msgs)

	byStudent := make(map[string]*model.Thread)
	var order []string
	for _, m := range msgs {
		sid := m.StudentSide()
		th, ok := byStudent[sid]
		if !ok {
			th = &model.Thread{StudentID: sid}
			byStudent[sid] = th
			order = append(order, sid)
		}
		if m.SenderRole == model.RoleStudent {
			th.StudentName = m.SenderName
			if !m.Read {
				th.UnreadCount++
			}
		}
		th.Messages = append(th.Messages, m)
		th.LastMessage = m
	}

	out := make([]model.Thread, 0, len(order))
	for _, sid := range order {
		out = append(out, *byStudent[sid])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.Timestamp.After(out[j].LastMessage.Timestamp)
	})
	return out
}

// GetUnreadCount is the admin's count of unread student messages, or a
// student's count of unread admin messages addressed to them.
func (s *Store) GetUnreadCount() int {
	id := s.ids.Identity()
	if id == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.Read {
			continue
		}
		if id.IsAdmin() {
			if m.SenderRole == model.RoleStudent {
				n++
			}
		} else if m.SenderRole == model.RoleAdmin && m.RecipientID == id.ID {
			n++
		}
	}
	return n
}

func sortByTime(msgs []model.ConversationMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
