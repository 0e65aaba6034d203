package store

import (
	"slices"
	"sync"
)

// keyed is a mutex-guarded map of wholesale-upserted records.
type keyed[T any] struct {
	mu sync.RWMutex
	m  map[string]T
}

func (k *keyed[T]) upsert(id string, v T) {
	k.mu.Lock()
	k.m[id] = v
	k.mu.Unlock()
}

func (k *keyed[T]) get(id string) (T, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[id]
	return v, ok
}

func (k *keyed[T]) remove(id string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.m[id]
	delete(k.m, id)
	return ok
}

// list returns values ordered by key so output is stable.
func (k *keyed[T]) list() []T {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := make([]string, 0, len(k.m))
	for id := range k.m {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, id := range keys {
		out = append(out, k.m[id])
	}
	return out
}

func (k *keyed[T]) len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.m)
}

func (k *keyed[T]) clear() {
	k.mu.Lock()
	clear(k.m)
	k.mu.Unlock()
}

// Contacts holds contact records keyed by normalized identifier.
type Contacts struct{ k keyed[Contact] }

// NewContacts creates an empty contact store.
func NewContacts() *Contacts { return &Contacts{k: keyed[Contact]{m: make(map[string]Contact)}} }

// Upsert replaces the record for c.ID wholesale.
func (s *Contacts) Upsert(c Contact) { s.k.upsert(c.ID, c) }

// Get returns the contact with the given identifier.
func (s *Contacts) Get(id string) (Contact, bool) { return s.k.get(id) }

// List returns all contacts ordered by identifier.
func (s *Contacts) List() []Contact { return s.k.list() }

// Len returns the number of contacts.
func (s *Contacts) Len() int { return s.k.len() }

// Clear drops all contacts.
func (s *Contacts) Clear() { s.k.clear() }

// Chats holds chat records keyed by chat identifier.
type Chats struct{ k keyed[Chat] }

// NewChats creates an empty chat store.
func NewChats() *Chats { return &Chats{k: keyed[Chat]{m: make(map[string]Chat)}} }

// Upsert replaces the record for c.ID wholesale.
func (s *Chats) Upsert(c Chat) { s.k.upsert(c.ID, c) }

// Get returns the chat with the given identifier.
func (s *Chats) Get(id string) (Chat, bool) { return s.k.get(id) }

// List returns all chats ordered by identifier.
func (s *Chats) List() []Chat { return s.k.list() }

// Len returns the number of chats.
func (s *Chats) Len() int { return s.k.len() }

// Clear drops all chats.
func (s *Chats) Clear() { s.k.clear() }

// Labels holds label records keyed by label id.
type Labels struct{ k keyed[Label] }

// NewLabels creates an empty label store.
func NewLabels() *Labels { return &Labels{k: keyed[Label]{m: make(map[string]Label)}} }

// Upsert replaces the record for l.ID wholesale.
func (s *Labels) Upsert(l Label) { s.k.upsert(l.ID, l) }

// Remove deletes a label. It reports whether the label was present.
func (s *Labels) Remove(id string) bool { return s.k.remove(id) }

// Get returns the label with the given id.
func (s *Labels) Get(id string) (Label, bool) { return s.k.get(id) }

// List returns all labels ordered by id.
func (s *Labels) List() []Label { return s.k.list() }

// Len returns the number of labels.
func (s *Labels) Len() int { return s.k.len() }

// Clear drops all labels.
func (s *Labels) Clear() { s.k.clear() }
