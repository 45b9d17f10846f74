// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model
// and the chat-participant relation.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateChat inserts a new Chat row with the given title. The chat ID is a
// randomly generated UUID (string), and timestamps are set to UTC. The
// freshness timestamp starts at creation time so a fresh chat sorts sensibly
// before its first message.
func CreateChat(ctx context.Context, db *gorm.DB, title string) (*domain.Chat, error) {
	now := time.Now().UTC()
	c := &domain.Chat{
		ID:            uuid.NewString(),
		Title:         title,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChat fetches a single chat by ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchChat advances the chat's freshness timestamp, used for chat-list
// ordering. If no rows are affected (chat missing), it returns ErrNotFound
// so a caller inside a transaction can roll the whole unit back.
func TouchChat(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", id).
		Update("last_message_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListChatsByFreshness returns all chats the user participates in, most
// recently active first. It returns an empty slice if the user has no chats.
func ListChatsByFreshness(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Order("chats.last_message_at DESC").
		Find(&out).Error
	return out, err
}

// AddParticipant inserts a membership row binding userID to chatID. A
// duplicate insert surfaces the DB uniqueness error; callers that need
// set semantics should check membership first.
func AddParticipant(ctx context.Context, db *gorm.DB, chatID, userID string) error {
	p := &domain.ChatParticipant{
		ChatID:   chatID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(p).Error
}

// IsParticipant reports whether (chatID, userID) is present in the
// chat-participant relation. This is the sole authorization check performed
// before chat mutations.
func IsParticipant(ctx context.Context, db *gorm.DB, chatID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error
	return n > 0, err
}

// ListParticipantIDs returns the user IDs of every participant of a chat,
// in join order.
func ListParticipantIDs(ctx context.Context, db *gorm.DB, chatID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Order("joined_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
