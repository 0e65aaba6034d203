package bus

import "time"

// Event represents a domain notification published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Notification kinds. Subscribing with a prefix such as "message." receives
// every kind in that namespace.
const (
	KindQRCode       = "client.qr"
	KindReady        = "client.ready"
	KindError        = "client.error"
	KindSessionSaved = "session.saved"

	KindStateChanged = "connection.state_changed"
	KindDisconnected = "connection.disconnected"
	KindReconnecting = "connection.reconnecting"

	KindMessageReceived = "message.received"
	KindMessageEdited   = "message.edited"
	KindMessageDeleted  = "message.deleted"
	KindMessageReaction = "message.reaction"

	KindPresence = "presence.update"
)

// QRCode carries a pairing code to be rendered for the user.
type QRCode struct {
	Code string `json:"code"`
}

// Disconnected reports why the session ended.
type Disconnected struct {
	Reason   string `json:"reason"`
	Terminal bool   `json:"terminal"`
}

// Reconnecting reports a scheduled reconnect.
type Reconnecting struct {
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
}

// Error reports a failure that was not returned to a caller.
type Error struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// SessionSaved reports that new credentials were persisted.
type SessionSaved struct {
	ID string `json:"id"`
}

// MessageEdited reports an edit of a previously delivered message.
type MessageEdited struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Sender    string `json:"sender,omitempty"`
	NewText   string `json:"new_text"`
	Timestamp int64  `json:"timestamp"`
}

// MessageDeleted reports a revoke ("delete for everyone").
type MessageDeleted struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Sender    string `json:"sender,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Reaction reports a reaction; an empty Emoji means the reaction was removed.
type Reaction struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	ReactorID string `json:"reactor_id"`
	Emoji     string `json:"emoji"`
}

// Presence reports a participant's availability or typing state.
type Presence struct {
	ID       string `json:"id"`
	ChatID   string `json:"chat_id,omitempty"`
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen,omitempty"`
}
