// REST operations of the delivery adapter: sending, catch-up, read marks,
// and chat management. Every call authenticates with the configured
// credential and decodes the server's error envelope on failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CatchUp fetches the messages of chatID created strictly after since, in
// ascending creation order. A zero since returns the full history.
func (c *Client) CatchUp(ctx context.Context, chatID string, since time.Time) ([]Message, error) {
	u := fmt.Sprintf("%s/chats/%s/messages", c.cfg.BaseURL, url.PathEscape(chatID))
	if !since.IsZero() {
		u += "?since=" + strconv.FormatInt(since.UnixMilli(), 10)
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendText sends a plain text message. idempotencyKey may be empty; when set,
// retrying with the same key replays the original result instead of storing
// a duplicate.
func (c *Client) SendText(ctx context.Context, chatID, body, idempotencyKey string) (*Message, error) {
	return c.Send(ctx, chatID, "text", body, nil, idempotencyKey)
}

// Send sends a message of any supported type. Non-text types require an
// attachment.
func (c *Client) Send(ctx context.Context, chatID, msgType, body string, att *Attachment, idempotencyKey string) (*Message, error) {
	u := fmt.Sprintf("%s/chats/%s/messages", c.cfg.BaseURL, url.PathEscape(chatID))
	req := map[string]any{"type": msgType, "body": body}
	if att != nil {
		req["attachment"] = att
	}
	var out struct {
		Message *Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, u, req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	if out.Message != nil {
		c.noteSeen(chatID, out.Message.CreatedAt)
	}
	return out.Message, nil
}

// MarkRead records read receipts for the given messages of chatID.
func (c *Client) MarkRead(ctx context.Context, chatID string, messageIDs []string) error {
	u := fmt.Sprintf("%s/chats/%s/read", c.cfg.BaseURL, url.PathEscape(chatID))
	return c.do(ctx, http.MethodPost, u, map[string]any{"message_ids": messageIDs}, "", nil)
}

// CreateChat creates a chat with the given participants; the caller is always
// included.
func (c *Client) CreateChat(ctx context.Context, title string, participantIDs []string) (*Chat, error) {
	var out struct {
		Chat *Chat `json:"chat"`
	}
	err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/chats",
		map[string]any{"title": title, "participant_ids": participantIDs}, "", &out)
	if err != nil {
		return nil, err
	}
	return out.Chat, nil
}

// ListChats returns the caller's chats, most recently active first.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var out struct {
		Chats []Chat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/chats", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// do performs one authenticated JSON round trip. Non-2xx responses decode to
// *APIError.
func (c *Client) do(ctx context.Context, method, u string, body any, idempotencyKey string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
