// Package domain – idempotency records.
//
// An Idempotency row maps (user, chat, client-supplied key) to the message
// produced by the first successful send, so retried sends can replay the
// stored result instead of inserting a duplicate message.
package domain

import "time"

// Idempotency records the outcome of a completed message send keyed by the
// client's Idempotency-Key header. Rows expire after ExpiresAt and are only
// consulted while valid.
type Idempotency struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;uniqueIndex:ux_idem_user_chat_key"`
	ChatID    string    `json:"chat_id"    gorm:"type:char(36);not null;uniqueIndex:ux_idem_user_chat_key"`
	Key       string    `json:"key"        gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_chat_key"`
	MessageID string    `json:"message_id" gorm:"type:char(36);not null"`
	Status    int       `json:"status"     gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Idempotency.
func (Idempotency) TableName() string { return "idempotency" }
