// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the message transaction pipeline, the catch-up fetch, and read-receipt
// application. Send validates input before touching the database, then runs
// participancy check, message insert, and chat-freshness update as one
// transaction; the enriched (sender-joined) representation is read back after
// commit and handed to the caller for live dispatch.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include chat/user identifiers and window parameters where applicable.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService coordinates message persistence, read receipts, and the
// catch-up fetch used by reconnecting clients.
type MessageService struct {
	DB *gorm.DB

	// MaxBodyRunes caps text bodies by rune length. Zero disables the cap.
	MaxBodyRunes int

	// CatchUpLimit caps the number of messages returned by one catch-up
	// fetch. Zero means unlimited.
	CatchUpLimit int
}

// Send runs the message transaction pipeline for chatID on behalf of
// senderID and returns the enriched persisted message.
//
// Pipeline: validate input (no DB interaction on failure) → one transaction
// {participancy check, message insert, chat-freshness update} → post-commit
// enriched re-read. A failure inside the transaction rolls back the whole
// unit; a failure of the post-commit read does not undo the committed message
// and is reported as ErrEnrichFailed instead.
func (s *MessageService) Send(ctx context.Context, chatID, senderID, msgType, body string, att *domain.Attachment) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", senderID),
			attribute.String("message.type", msgType),
		),
	)
	defer span.End()

	// Validation happens before any database interaction.
	if !domain.KnownMessageType(msgType) {
		return nil, ErrUnsupportedType
	}
	body = strings.TrimSpace(body)
	if msgType == domain.MessageTypeText && body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}
	if msgType != domain.MessageTypeText && (att == nil || att.URL == "") {
		return nil, ErrMissingAttachment
	}

	var messageID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := repo.IsParticipant(ctx, tx, chatID, senderID)
		if err != nil {
			return err
		}
		if !member {
			return ErrAccessDenied
		}

		now := time.Now().UTC()
		m, err := repo.CreateMessage(tx, chatID, senderID, msgType, body, att, now)
		if err != nil {
			return err
		}
		messageID = m.ID

		// The freshness update is part of the atomic unit: a message is
		// never visible without its chat's ordering timestamp advancing.
		return repo.TouchChat(ctx, tx, chatID, now)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit: always observes the just-committed row. A failure here
	// must not be confused with a write failure.
	m, err := repo.GetMessageEnriched(ctx, s.DB, messageID)
	if err != nil {
		return nil, ErrEnrichFailed
	}
	return m, nil
}

// ListSince returns messages of a chat created strictly after since, in
// ascending creation order, each carrying the denormalized sender summary.
// This is the catch-up fetch: the correctness backstop for the at-most-once
// live dispatch. Callers must be chat participants.
func (s *MessageService) ListSince(ctx context.Context, chatID, userID string, since time.Time) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListSince",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Int64("since_ms", since.UnixMilli()),
		),
	)
	defer span.End()

	member, err := repo.IsParticipant(ctx, s.DB, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrAccessDenied
	}
	return repo.ListMessagesSince(ctx, s.DB, chatID, since, s.CatchUpLimit)
}

// MarkRead idempotently records that userID has read the given messages of
// chatID and sets their read flag. Marking is monotonic; calling twice with
// the same set produces no duplicate receipts and no error.
func (s *MessageService) MarkRead(ctx context.Context, chatID, userID string, messageIDs []string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.Int("message.count", len(messageIDs)),
		),
	)
	defer span.End()

	if len(messageIDs) == 0 {
		return nil
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := repo.IsParticipant(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrAccessDenied
		}
		if err := repo.UpsertReadReceipts(ctx, tx, userID, messageIDs); err != nil {
			return err
		}
		return repo.MarkMessagesRead(ctx, tx, chatID, messageIDs)
	})
}

// ParticipantIDs returns the user IDs of every participant of a chat. The
// handler layer uses this to fan events out after a committed send.
func (s *MessageService) ParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	return repo.ListParticipantIDs(ctx, s.DB, chatID)
}
