// Package domain defines the persistence models for users, chats, chat
// membership, messages, and read receipts. These types are mapped with GORM
// and form the core data layer of the messenger backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message type tags. A message is either plain text or carries an attachment.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
)

// KnownMessageType reports whether t is one of the supported message types.
func KnownMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile:
		return true
	}
	return false
}

// User represents an account that can participate in chats. Identity issuance
// and profile management live outside this service; only the fields needed to
// enrich delivered messages are modeled here.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username: display name shown next to delivered messages.
//   - AvatarURL: optional path to the user's avatar image.
type User struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Username  string         `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex"`
	AvatarURL string         `json:"avatar_url" gorm:"type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserSummary is the denormalized sender identity attached to delivered and
// fetched messages so clients can render them without a second lookup.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Summary returns the denormalized view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// Chat represents a conversation between two or more participants. The
// LastMessageAt freshness timestamp orders chat lists and is advanced in the
// same transaction that inserts a message.
type Chat struct {
	ID            string         `json:"id"              gorm:"type:char(36);primaryKey"`
	Title         string         `json:"title"           gorm:"type:varchar(255)"`
	LastMessageAt time.Time      `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// ChatParticipant binds a user to a chat. Presence in this relation is the
// sole authorization rule for sending, fetching, and marking messages in a
// chat. Uniqueness over (chat, user) makes membership a set.
type ChatParticipant struct {
	ChatID   string    `json:"chat_id"   gorm:"type:char(36);not null;uniqueIndex:ux_chat_user;index"`
	UserID   string    `json:"user_id"   gorm:"type:char(36);not null;uniqueIndex:ux_chat_user;index"`
	JoinedAt time.Time `json:"joined_at"`

	// Chat is the parent conversation. Membership rows are cascade-deleted
	// when the chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatParticipant.
func (ChatParticipant) TableName() string { return "chat_participants" }

// Attachment holds media metadata for non-text messages. Storage of the
// underlying file happens before the message transaction begins; the URL is
// treated as already-valid input here.
type Attachment struct {
	URL          string  `json:"url"`
	Name         string  `json:"name,omitempty"`
	Size         int64   `json:"size,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Message represents a single persisted chat message. Messages are immutable
// after creation except for the read flag and read-receipt side records.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatID: foreign key to the owning chat (indexed with CreatedAt).
//   - SenderID: author of the message; derived from the credential, never
//     client-supplied.
//   - Type: one of text/image/video/file (enforced by DB constraint).
//   - Body: text content; required non-empty for text messages.
//   - Attachment: media metadata, present for non-text types.
//   - Read: set once any recipient marks the message read; never cleared.
//   - Sender: denormalized author identity, populated on enriched reads only.
type Message struct {
	ID         string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatID     string         `json:"chat_id"    gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	SenderID   string         `json:"sender_id"  gorm:"type:char(36);not null;index"`
	Type       string         `json:"type"       gorm:"type:varchar(16);not null;check:type IN ('text','image','video','file')"`
	Body       string         `json:"body"       gorm:"type:text"`
	Attachment *Attachment    `json:"attachment,omitempty" gorm:"embedded;embeddedPrefix:attachment_"`
	Read       bool           `json:"read"       gorm:"not null;default:false"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"          gorm:"index"`

	Sender *UserSummary `json:"sender,omitempty" gorm:"-"`

	// Chat is the parent conversation. Messages are cascade-deleted if
	// their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ReadReceipt records that a user has read a message. Uniqueness over
// (message, user) makes duplicate marks idempotent no-ops; there is no
// "unread" operation.
type ReadReceipt struct {
	MessageID string    `json:"message_id" gorm:"type:char(36);not null;uniqueIndex:ux_receipt_message_user;index"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;uniqueIndex:ux_receipt_message_user;index"`
	ReadAt    time.Time `json:"read_at"`

	// Message is the read message. Receipts are cascade-deleted if the
	// underlying message is removed.
	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReadReceipt.
func (ReadReceipt) TableName() string { return "read_receipts" }
