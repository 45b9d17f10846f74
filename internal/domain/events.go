// Package domain – live-stream events.
//
// This file defines the wire payloads pushed through a live sink to connected
// devices. The event set is closed: adding a kind means adding a constant, a
// payload struct, and a constructor here, so exhaustiveness stays visible in
// one place. Each event carries the minimal data a client needs to update
// local state without a re-fetch.
package domain

import "time"

// EventType tags the kind of a live-stream event.
type EventType string

// Known event kinds.
const (
	// EventConnected is always the first frame on a freshly opened stream.
	EventConnected EventType = "CONNECTED"
	// EventNewMessage carries a full enriched message.
	EventNewMessage EventType = "new_message"
	// EventChatUpdated signals that a chat's freshness timestamp advanced.
	EventChatUpdated EventType = "chat_updated"
	// EventMessagesRead signals that a participant read a set of messages.
	EventMessagesRead EventType = "messages_read"
)

// SessionInfo is the payload of a CONNECTED event: the resolved identity of
// the stream and the server time at which it was opened.
type SessionInfo struct {
	UserID      string    `json:"user_id"`
	DeviceID    string    `json:"device_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ChatUpdate is the payload of a chat_updated event.
type ChatUpdate struct {
	ChatID        string    `json:"chat_id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ReadNotice is the payload of a messages_read event.
type ReadNotice struct {
	ChatID     string   `json:"chat_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

// Event is the tagged union sent over a live sink. Exactly one payload field
// is non-nil, matching Type. Construct events through the helpers below so
// the tag and payload cannot drift apart.
type Event struct {
	Type    EventType    `json:"type"`
	Session *SessionInfo `json:"session,omitempty"`
	Message *Message     `json:"message,omitempty"`
	Chat    *ChatUpdate  `json:"chat,omitempty"`
	Read    *ReadNotice  `json:"read,omitempty"`
}

// ConnectedEvent builds the handshake frame for a freshly opened stream.
func ConnectedEvent(userID, deviceID string, at time.Time) Event {
	return Event{
		Type:    EventConnected,
		Session: &SessionInfo{UserID: userID, DeviceID: deviceID, ConnectedAt: at},
	}
}

// NewMessageEvent wraps an enriched message for live delivery.
func NewMessageEvent(m *Message) Event {
	return Event{Type: EventNewMessage, Message: m}
}

// ChatUpdatedEvent signals chat-list reordering to connected devices.
func ChatUpdatedEvent(chatID string, lastMessageAt time.Time) Event {
	return Event{
		Type: EventChatUpdated,
		Chat: &ChatUpdate{ChatID: chatID, LastMessageAt: lastMessageAt},
	}
}

// MessagesReadEvent notifies participants that readerID read the given
// messages in a chat.
func MessagesReadEvent(chatID, readerID string, messageIDs []string) Event {
	return Event{
		Type: EventMessagesRead,
		Read: &ReadNotice{ChatID: chatID, ReaderID: readerID, MessageIDs: messageIDs},
	}
}
