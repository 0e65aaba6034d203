package store

import "sync"

// Messages holds per-chat message sequences in arrival order. It is
// append-only: there is no update or delete.
type Messages struct {
	mu     sync.RWMutex
	byChat map[string][]*Message
}

// NewMessages creates an empty message store.
func NewMessages() *Messages {
	return &Messages{byChat: make(map[string][]*Message)}
}

// Append adds m at the end of chatID's sequence.
func (s *Messages) Append(chatID string, m *Message) {
	s.mu.Lock()
	s.byChat[chatID] = append(s.byChat[chatID], m)
	s.mu.Unlock()
}

// List returns a copy of chatID's sequence. The records are shared and must
// be treated as read-only.
func (s *Messages) List(chatID string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.byChat[chatID]
	out := make([]*Message, len(src))
	copy(out, src)
	return out
}

// Find returns the message with the given id in chatID, if present.
func (s *Messages) Find(chatID, msgID string) (*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.byChat[chatID] {
		if m.ID == msgID {
			return m, true
		}
	}
	return nil, false
}

// Len returns the number of messages stored for chatID.
func (s *Messages) Len(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byChat[chatID])
}

// Total returns the number of messages across all chats.
func (s *Messages) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, msgs := range s.byChat {
		n += len(msgs)
	}
	return n
}

// Clear drops every sequence.
func (s *Messages) Clear() {
	s.mu.Lock()
	clear(s.byChat)
	s.mu.Unlock()
}
