// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for read receipts.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// UpsertReadReceipts idempotently records that userID has read the given
// messages. Duplicate (message, user) pairs are no-ops, not errors, via
// ON CONFLICT DO NOTHING on the uniqueness index.
func UpsertReadReceipts(ctx context.Context, db *gorm.DB, userID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	receipts := make([]domain.ReadReceipt, 0, len(messageIDs))
	for _, id := range messageIDs {
		receipts = append(receipts, domain.ReadReceipt{
			MessageID: id,
			UserID:    userID,
			ReadAt:    now,
		})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&receipts).Error
}

// CountReadReceipts returns the number of receipt rows for a message.
func CountReadReceipts(ctx context.Context, db *gorm.DB, messageID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ReadReceipt{}).
		Where("message_id = ?", messageID).
		Count(&n).Error
	return n, err
}

// ListReaderIDs returns the IDs of users that have read a message.
func ListReaderIDs(ctx context.Context, db *gorm.DB, messageID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.ReadReceipt{}).
		Where("message_id = ?", messageID).
		Order("read_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
