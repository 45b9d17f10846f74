// Live event stream handler.
//
// This file exposes GET /events, the SSE endpoint each device keeps open to
// receive pushed events. The handler registers an EventSink for the
// authenticated (user, device) pair, writes the CONNECTED handshake frame,
// then pumps dispatched events as `data: <JSON>` frames until the client
// disconnects or the sink is superseded by a newer stream from the same
// device.
//
// Keepalive comment frames are written on an interval so idle streams survive
// proxies, and each one refreshes the device's presence TTL.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/http/middleware"
	"github.com/mvasilakos/go-messenger-backend/internal/live"
)

// Events godoc
// @ID          events
// @Summary     Open the live event stream
// @Description Server-Sent Events stream carrying new_message, chat_updated,
// @Description and messages_read events for the authenticated user. The first
// @Description frame is always a CONNECTED handshake. Opening a second stream
// @Description for the same device_id closes the first.
// @Tags        Events
// @Produce     text/event-stream
// @Param       device_id     query  string  false  "Stable device identifier; generated when absent"
// @Param       access_token  query  string  false  "Bearer credential for EventSource clients"
// @Success     200  "event stream"
// @Failure     500  {object}  handlers.ErrorResponse
// @Security    BearerAuth
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	uid := userID(c)
	deviceID := c.Query("device_id")
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	flusher, okF := c.Writer.(http.Flusher)
	if !okF {
		fail(c, http.StatusInternalServerError, ErrCodeStreamFailed, "streaming unsupported")
		return
	}

	h.setStreamHeaders(c)

	sink := live.NewEventSink(h.SSEBuffer)
	h.registry.Register(uid, deviceID, sink)

	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	if err := h.presence.MarkOnline(ctx, uid, deviceID); err != nil {
		lg.Warn().Err(err).Msg("presence mark-online failed")
	}

	defer func() {
		sink.Close()
		h.registry.Unregister(uid, sink)
		if err := h.presence.MarkOffline(c, uid, deviceID); err != nil {
			lg.Warn().Err(err).Msg("presence mark-offline failed")
		}
		lg.Info().
			Str("device_id", deviceID).
			Msg("live stream closed")
	}()

	// Handshake frame: confirms the resolved identity before any event.
	if err := writeFrame(c, flusher, domain.ConnectedEvent(uid, deviceID, time.Now().UTC())); err != nil {
		return
	}
	lg.Info().
		Str("device_id", deviceID).
		Int("connections", h.registry.Connections(uid)).
		Msg("live stream opened")

	keepalive := h.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sink.Done():
			// Superseded by a newer stream from this device.
			return
		case ev := <-sink.Events():
			if err := writeFrame(c, flusher, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
			if err := h.presence.Refresh(ctx, uid, deviceID); err != nil {
				lg.Warn().Err(err).Msg("presence refresh failed")
			}
		}
	}
}

// setStreamHeaders prepares the response for an indefinite SSE body.
func (h *Handlers) setStreamHeaders(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	// Disable proxy buffering so frames reach the client immediately.
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
}

// writeFrame encodes one event as a data-only SSE frame and flushes it.
func writeFrame(c *gin.Context, flusher http.Flusher, ev domain.Event) error {
	if err := sse.Encode(c.Writer, sse.Event{Data: ev}); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
