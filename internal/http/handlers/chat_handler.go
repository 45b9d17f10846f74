// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat resources:
//   - POST /chats            (create a chat with its participant set)
//   - GET  /chats            (list the caller's chats by freshness)
//   - GET  /chats/{id}       (fetch one chat)
//
// It also declares the service contracts and the Handlers wiring shared by
// every endpoint in this package. Handlers are transport-thin: they validate
// input, call application services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/http/middleware"
	"github.com/mvasilakos/go-messenger-backend/internal/live"
	"github.com/mvasilakos/go-messenger-backend/internal/presence"
	"github.com/mvasilakos/go-messenger-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ChatService defines chat lifecycle operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type ChatService interface {
	// Create starts a new chat for creatorID with the given participants.
	Create(ctx context.Context, creatorID, title string, participantIDs []string) (*domain.Chat, error)
	// Get fetches a chat the user participates in.
	Get(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	// List returns the user's chats ordered by freshness.
	List(ctx context.Context, userID string) ([]domain.Chat, error)
}

// MessageService defines message persistence and retrieval operations.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type MessageService interface {
	// Send runs the message transaction pipeline and returns the enriched
	// persisted message.
	Send(ctx context.Context, chatID, senderID, msgType, body string, att *domain.Attachment) (*domain.Message, error)
	// ListSince returns a chat's messages created strictly after since.
	ListSince(ctx context.Context, chatID, userID string, since time.Time) ([]domain.Message, error)
	// MarkRead idempotently records read receipts for the given messages.
	MarkRead(ctx context.Context, chatID, userID string, messageIDs []string) error
	// ParticipantIDs lists every participant of a chat for event fan-out.
	ParticipantIDs(ctx context.Context, chatID string) ([]string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for chats, messages, presence, and the
// live event stream. It depends on abstract service interfaces for business
// logic and on the live registry/dispatcher for push delivery.
type Handlers struct {
	chatSvc ChatService
	msgSvc  MessageService

	registry   *live.Registry
	dispatcher *live.Dispatcher
	presence   *presence.Store

	// SSEBuffer sizes each stream's event buffer; KeepaliveInterval paces
	// comment frames and presence refreshes on open streams.
	SSEBuffer         int
	KeepaliveInterval time.Duration
	// IdempotencyTTL bounds how long completed sends can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services and live
// delivery components. The presence store may be nil (single-node, no Redis).
func New(chatSvc ChatService, msgSvc MessageService, reg *live.Registry, disp *live.Dispatcher, pres *presence.Store) *Handlers {
	return &Handlers{
		chatSvc:           chatSvc,
		msgSvc:            msgSvc,
		registry:          reg,
		dispatcher:        disp,
		presence:          pres,
		SSEBuffer:         16,
		KeepaliveInterval: 25 * time.Second,
		IdempotencyTTL:    24 * time.Hour,
	}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

//
// DTOs
//

// CreateChatRequest is the JSON payload for creating a chat.
type CreateChatRequest struct {
	// Title optionally names the chat; empty is valid for direct chats.
	Title string `json:"title" example:"Weekend plans"`
	// ParticipantIDs lists the other members; the creator is always included.
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1"`
}

// CreateChatResponse wraps the newly created chat.
type CreateChatResponse struct {
	Chat *domain.Chat `json:"chat"`
}

// ListChatsResponse wraps the caller's chats, most recently active first.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

// PresenceResponse reports a user's online status.
type PresenceResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

//
// Handlers
//

// CreateChat godoc
// @ID          createChat
// @Summary     Create a chat
// @Description Creates a chat with the given participants. The caller is
// @Description always included in the participant set.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateChatRequest  true  "Chat payload"
// @Success     201  {object}  handlers.CreateChatResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participant_ids required")
		return
	}

	chat, err := h.chatSvc.Create(c.Request.Context(), userID(c), req.Title, req.ParticipantIDs)
	if err != nil {
		if err == services.ErrNoParticipants {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one participant required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create chat")
		return
	}
	ok(c, http.StatusCreated, CreateChatResponse{Chat: chat})
}

// GetChat godoc
// @ID          getChat
// @Summary     Fetch a chat
// @Tags        Chats
// @Produce     json
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.CreateChatResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	chat, err := h.chatSvc.Get(c.Request.Context(), chatID, userID(c))
	if err != nil {
		switch err {
		case services.ErrAccessDenied:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a participant of this chat")
		case services.ErrChatNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not fetch chat")
		}
		return
	}
	ok(c, http.StatusOK, CreateChatResponse{Chat: chat})
}

// ListChats godoc
// @ID          listChats
// @Summary     List the caller's chats
// @Description Returns chats ordered by last activity, newest first.
// @Tags        Chats
// @Produce     json
// @Success     200  {object}  handlers.ListChatsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	chats, err := h.chatSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list chats")
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	ok(c, http.StatusOK, ListChatsResponse{Chats: chats})
}

// GetPresence godoc
// @ID          getPresence
// @Summary     Check whether a user is online
// @Description Reports whether the user holds at least one open live stream.
// @Description Without a presence backend every user reads as offline.
// @Tags        Presence
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     200  {object}  handlers.PresenceResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /users/{id}/presence [get]
func (h *Handlers) GetPresence(c *gin.Context) {
	target := c.Param("id")
	online, err := h.presence.IsOnline(c.Request.Context(), target)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "presence lookup failed")
		return
	}
	ok(c, http.StatusOK, PresenceResponse{UserID: target, Online: online})
}
