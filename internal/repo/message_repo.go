// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the enriched (sender-joined) reads used by live delivery
// and the catch-up fetch.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// enrichedMessageColumns selects message rows plus the denormalized sender
// identity in one join.
const enrichedMessageColumns = "messages.*, users.username AS sender_username, users.avatar_url AS sender_avatar_url"

// enrichedRow is the flat scan target for sender-joined message queries.
type enrichedRow struct {
	domain.Message
	SenderUsername  string
	SenderAvatarURL string
}

func (r *enrichedRow) toMessage() *domain.Message {
	m := r.Message
	m.Sender = &domain.UserSummary{
		ID:        m.SenderID,
		Username:  r.SenderUsername,
		AvatarURL: r.SenderAvatarURL,
	}
	return &m
}

// CreateMessage inserts a new message row. The caller is responsible for
// validation (trimmed non-empty body for text, attachment for media types)
// and for running this inside the send transaction.
func CreateMessage(db *gorm.DB, chatID, senderID, msgType, body string, att *domain.Attachment, at time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		SenderID:   senderID,
		Type:       msgType,
		Body:       body,
		Attachment: att,
		CreatedAt:  at,
	}
	return m, db.Create(m).Error
}

// GetMessage fetches a message by ID without sender enrichment.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessageEnriched fetches a message by ID joined with the sender's
// identity (username, avatar). Used for the post-commit re-read that produces
// the representation returned to the caller and pushed to live sinks.
func GetMessageEnriched(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var row enrichedRow
	err := db.WithContext(ctx).
		Table("messages").
		Select(enrichedMessageColumns).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.id = ? AND messages.deleted_at IS NULL", id).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row.toMessage(), nil
}

// ListMessagesSince returns messages of a chat created strictly after the
// given instant, in ascending (CreatedAt, ID) order, each carrying the
// denormalized sender summary. A zero since returns the full history.
func ListMessagesSince(ctx context.Context, db *gorm.DB, chatID string, since time.Time, limit int) ([]domain.Message, error) {
	q := db.WithContext(ctx).
		Table("messages").
		Select(enrichedMessageColumns).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.chat_id = ? AND messages.deleted_at IS NULL", chatID).
		Order("messages.created_at ASC, messages.id ASC")
	if !since.IsZero() {
		q = q.Where("messages.created_at > ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []enrichedRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toMessage())
	}
	return out, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error (as tests expect).
func CountMessages(db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ? AND deleted_at IS NULL", chatID).Scan(&total).Error
	return total, err
}

// MessagesStats returns the message count and the latest creation timestamp
// for a chat, used to build weak ETags for the catch-up fetch endpoint.
// The timestamp comes from a typed row read rather than MAX() so the SQLite
// driver keeps the column's declared time type.
func MessagesStats(ctx context.Context, db *gorm.DB, chatID string) (count int64, maxCreatedAt *time.Time, err error) {
	err = db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	if err != nil || count == 0 {
		return count, nil, err
	}

	var newest domain.Message
	err = db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Select("created_at").
		Take(&newest).Error
	if err != nil {
		return count, nil, err
	}
	at := newest.CreatedAt
	return count, &at, nil
}

// MarkMessagesRead sets the read flag on the given messages of a chat.
// The flag is monotonic; rows already read are unaffected. Scoping by chatID
// prevents a receipt from flipping messages outside the authorized chat.
func MarkMessagesRead(ctx context.Context, db *gorm.DB, chatID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("chat_id = ? AND id IN ?", chatID, messageIDs).
		Update("read", true).Error
}
