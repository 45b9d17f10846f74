// Wire types mirrored from the server's event and message schema. The
// adapter keeps its own copies so applications embedding it never depend on
// server internals; the JSON shapes are the contract.
package client

import "time"

// EventType tags the kind of a live-stream event.
type EventType string

// Known event kinds. Unknown kinds received from newer servers are ignored.
const (
	EventConnected    EventType = "CONNECTED"
	EventNewMessage   EventType = "new_message"
	EventChatUpdated  EventType = "chat_updated"
	EventMessagesRead EventType = "messages_read"
)

// SessionInfo is the payload of the CONNECTED handshake frame.
type SessionInfo struct {
	UserID      string    `json:"user_id"`
	DeviceID    string    `json:"device_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ChatUpdate signals that a chat's freshness timestamp advanced.
type ChatUpdate struct {
	ChatID        string    `json:"chat_id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ReadNotice signals that a participant read a set of messages.
type ReadNotice struct {
	ChatID     string   `json:"chat_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

// Event is the tagged union pushed over the stream. Exactly one payload
// field is set, matching Type.
type Event struct {
	Type    EventType    `json:"type"`
	Session *SessionInfo `json:"session,omitempty"`
	Message *Message     `json:"message,omitempty"`
	Chat    *ChatUpdate  `json:"chat,omitempty"`
	Read    *ReadNotice  `json:"read,omitempty"`
}

// UserSummary is the denormalized sender identity attached to messages.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Attachment holds media metadata for non-text messages.
type Attachment struct {
	URL          string  `json:"url"`
	Name         string  `json:"name,omitempty"`
	Size         int64   `json:"size,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Message is one chat message as delivered by push or catch-up.
type Message struct {
	ID         string       `json:"id"`
	ChatID     string       `json:"chat_id"`
	SenderID   string       `json:"sender_id"`
	Type       string       `json:"type"`
	Body       string       `json:"body"`
	Attachment *Attachment  `json:"attachment,omitempty"`
	Read       bool         `json:"read"`
	CreatedAt  time.Time    `json:"created_at"`
	Sender     *UserSummary `json:"sender,omitempty"`
}

// Chat is one conversation as returned by the chat endpoints.
type Chat struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIError is the server's error envelope, returned by REST helpers when the
// response status is not a success.
type APIError struct {
	Status    int    `json:"-"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return "client: " + e.Code + ": " + e.Message
}
