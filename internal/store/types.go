package store

import "go.mau.fi/whatsmeow/proto/waE2E"

// MessageType classifies the payload variant of a message.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
	TypeSticker  MessageType = "sticker"
	TypeUnknown  MessageType = "unknown"
)

// Contact represents a known contact.
type Contact struct {
	ID    string `json:"id"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Chat represents a direct or group conversation.
type Chat struct {
	ID            string `json:"id"`
	Phone         string `json:"phone,omitempty"`
	Name          string `json:"name,omitempty"`
	IsGroup       bool   `json:"is_group"`
	LastMessageAt int64  `json:"last_message_at"`
	UnreadCount   int    `json:"unread_count"`
	Archived      bool   `json:"archived"`
	Pinned        bool   `json:"pinned"`
}

// MediaInfo describes the attachment of a media message.
type MediaInfo struct {
	MimeType   string `json:"mime_type,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	FileLength uint64 `json:"file_length,omitempty"`
	Seconds    uint32 `json:"seconds,omitempty"`
	Width      uint32 `json:"width,omitempty"`
	Height     uint32 `json:"height,omitempty"`
	URL        string `json:"url,omitempty"`
	DirectPath string `json:"direct_path,omitempty"`
}

// Message is a normalized live message. Records are never modified once
// appended; edits and deletions travel as separate notifications.
type Message struct {
	ID          string      `json:"id"`
	ChatID      string      `json:"chat_id"`
	SenderPhone string      `json:"sender_phone,omitempty"`
	SenderName  string      `json:"sender_name,omitempty"`
	Text        string      `json:"text,omitempty"`
	Timestamp   int64       `json:"timestamp"`
	IsGroup     bool        `json:"is_group"`
	Participant string      `json:"participant,omitempty"`
	FromMe      bool        `json:"from_me"`
	Type        MessageType `json:"type"`
	Media       *MediaInfo  `json:"media,omitempty"`

	// Raw is the transport payload, kept for forward/react/edit.
	Raw *waE2E.Message `json:"-"`
}

// Label represents a chat label (business accounts).
type Label struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        int32  `json:"color"`
	PredefinedID *int32 `json:"predefined_id,omitempty"`
	Deleted      bool   `json:"deleted"`
}
