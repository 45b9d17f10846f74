// Message HTTP handlers.
//
// This file exposes REST endpoints for chat messages:
//   - POST /chats/{id}/messages  (send a message through the transaction pipeline)
//   - GET  /chats/{id}/messages  (catch-up fetch: messages since a timestamp)
//   - POST /chats/{id}/read      (mark messages read)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to MessageService, and translate results into HTTP responses. After a
// committed send or read mark, the handler fans the corresponding events out
// to every participant's live sinks; dispatch failures never fail the request.
//
// Idempotency:
// When the client supplies an Idempotency-Key and a previous successful send
// exists for (user, chat, key), the handler replays the recorded message and
// sets `Idempotency-Replayed: true` without dispatching again.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/http/middleware"
	"github.com/mvasilakos/go-messenger-backend/internal/repo"
	"github.com/mvasilakos/go-messenger-backend/internal/services"
	"github.com/mvasilakos/go-messenger-backend/internal/utils"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a message. Type defaults
// to "text" when omitted; non-text types require an attachment.
type PostMessageRequest struct {
	Type string `json:"type" example:"text"`
	// Body is the text content; required non-empty for text messages.
	Body string `json:"body" example:"See you at eight?"`
	// Attachment carries media metadata for image/video/file messages.
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

// PostMessageResponse wraps the persisted, sender-enriched message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains the catch-up fetch result.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// MarkReadRequest is the JSON payload for marking messages read.
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required,min=1"`
}

//
// Helpers
//

// sanitizeBody normalizes line endings so stored bodies are consistent
// regardless of client platform.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// fanOutSend pushes the new-message and chat-reorder events to every
// participant's live devices. Best effort: failures are the dispatcher's
// problem, never the sender's.
func (h *Handlers) fanOutSend(c *gin.Context, chatID string, m *domain.Message) {
	ids, err := h.msgSvc.ParticipantIDs(c.Request.Context(), chatID)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).
			Str("chat_id", chatID).
			Msg("fan-out skipped: participant lookup failed")
		return
	}
	h.dispatcher.DispatchMany(ids, domain.NewMessageEvent(m))
	h.dispatcher.DispatchMany(ids, domain.ChatUpdatedEvent(chatID, m.CreatedAt))
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Description Persists a message atomically with the chat's freshness update
// @Description and pushes it to all participants' connected devices.
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
// @Success     201  {object}  handlers.PostMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid message payload")
		return
	}
	if req.Type == "" {
		req.Type = domain.MessageTypeText
	}
	body := sanitizeBody(req.Body)
	sender := userID(c)

	// Replay path: return the previously recorded result for this key.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, sender, chatID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessageEnriched(ctx, svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, PostMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	m, err := h.msgSvc.Send(ctx, chatID, sender, req.Type, body, req.Attachment)
	if err != nil {
		switch err {
		case services.ErrAccessDenied:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a participant of this chat")
		case services.ErrEmptyBody:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required for text messages")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body too long")
		case services.ErrUnsupportedType:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest,
				fmt.Sprintf("unsupported message type %q", req.Type))
		case services.ErrMissingAttachment:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "attachment required for media messages")
		case services.ErrEnrichFailed:
			// The message committed; only the read-back failed.
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "message stored but could not be loaded")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "could not send message")
		}
		return
	}

	// Store path: record the outcome so retries replay instead of duplicate.
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if _, err := repo.CreateIdempotency(ctx, svc.DB, sender, chatID, idemKey, m.ID, http.StatusCreated, h.IdempotencyTTL); err != nil && err != repo.ErrDuplicate {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
			}
		}
	}

	h.fanOutSend(c, chatID, m)
	ok(c, http.StatusCreated, PostMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Catch-up fetch
// @Description Returns messages created strictly after the given timestamp in
// @Description ascending creation order, each with the sender's identity.
// @Description Supports conditional requests via weak ETags.
// @Tags        Messages
// @Produce     json
// @Param       id     path   string  true   "Chat ID (UUID)"  format(uuid)
// @Param       since  query  int     false  "Unix milliseconds; 0 or absent returns full history"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}
	since, err := utils.ParseMillis(c.Query("since"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "since must be unix milliseconds")
		return
	}

	msgs, err := h.msgSvc.ListSince(ctx, chatID, userID(c), since)
	if err != nil {
		if err == services.ErrAccessDenied {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a participant of this chat")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}

	// Weak ETag over the chat's message stats; lets pollers skip the body.
	if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
		if count, maxAt, serr := repo.MessagesStats(ctx, svc.DB, chatID); serr == nil {
			var ts int64
			if maxAt != nil {
				ts = maxAt.UnixMilli()
			}
			etag := fmt.Sprintf(`W/"msgs-%d-%d"`, count, ts)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs})
}

// MarkRead godoc
// @ID          markRead
// @Summary     Mark messages read
// @Description Records read receipts idempotently and notifies the other
// @Description participants' connected devices.
// @Tags        Messages
// @Accept      json
// @Param       id    path  string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.MarkReadRequest  true  "Read payload"
// @Success     204  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats/{id}/read [post]
func (h *Handlers) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message_ids required")
		return
	}

	reader := userID(c)
	if err := h.msgSvc.MarkRead(ctx, chatID, reader, req.MessageIDs); err != nil {
		if err == services.ErrAccessDenied {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a participant of this chat")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeMarkReadFailed, "could not mark messages read")
		return
	}

	// Notify everyone but the reader; their own devices already know.
	if ids, err := h.msgSvc.ParticipantIDs(ctx, chatID); err == nil {
		targets := ids[:0:0]
		for _, id := range ids {
			if id != reader {
				targets = append(targets, id)
			}
		}
		h.dispatcher.DispatchMany(targets, domain.MessagesReadEvent(chatID, reader, req.MessageIDs))
	}

	noContent(c)
}
