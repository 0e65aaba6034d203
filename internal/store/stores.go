package store

// Stores bundles the four projections owned by one client instance.
type Stores struct {
	Contacts *Contacts
	Chats    *Chats
	Messages *Messages
	Labels   *Labels
}

// New creates an empty set of stores.
func New() *Stores {
	return &Stores{
		Contacts: NewContacts(),
		Chats:    NewChats(),
		Messages: NewMessages(),
		Labels:   NewLabels(),
	}
}

// Clear empties all four stores.
func (s *Stores) Clear() {
	s.Contacts.Clear()
	s.Chats.Clear()
	s.Messages.Clear()
	s.Labels.Clear()
}
