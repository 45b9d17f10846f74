// Package client is the Go delivery adapter for the messenger backend. It
// keeps one SSE stream open per device, decodes pushed events, and hands them
// to registered handlers. When the stream drops it reconnects with
// exponential backoff and bridges the gap with the catch-up fetch, so
// applications built on it observe every message exactly once per chat
// timeline even though the push channel itself is at-most-once.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State describes the stream lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config configures a Client. BaseURL and one of Token or TokenSource are
// required.
type Config struct {
	// BaseURL is the API root including the base path, e.g.
	// "https://chat.example.com/api/v1".
	BaseURL string
	// Token is a static bearer credential.
	Token string
	// TokenSource, when set, is consulted before every request and
	// reconnect so expiring credentials can be refreshed. Overrides Token.
	TokenSource func(ctx context.Context) (string, error)
	// DeviceID identifies this device across reconnects. Generated and kept
	// for the client's lifetime when empty.
	DeviceID string
	// HTTPClient defaults to a client without a global timeout; the stream
	// request must be allowed to run indefinitely.
	HTTPClient *http.Client
	// MinBackoff/MaxBackoff bound the reconnect delay. Defaults 500ms / 30s.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// AutoCatchUp replays messages missed during an outage through the
	// new-message handlers after every reconnect, for each chat the client
	// has seen traffic in.
	AutoCatchUp bool
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Client maintains the live stream and exposes the REST operations a
// messaging frontend needs.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	nextSub   int
	onState   map[int]func(State)
	onMessage map[int]func(Message)
	onChat    map[int]func(ChatUpdate)
	onRead    map[int]func(ReadNotice)

	// lastSeen tracks the newest message timestamp per chat for catch-up.
	lastSeen map[string]time.Time
}

// New validates cfg and returns a Client. Run must be called to open the
// stream; the REST helpers work immediately.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: BaseURL required")
	}
	if cfg.Token == "" && cfg.TokenSource == nil {
		return nil, errors.New("client: Token or TokenSource required")
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	lg := zerolog.Nop()
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}
	return &Client{
		cfg:       cfg,
		http:      hc,
		log:       lg,
		onState:   make(map[int]func(State)),
		onMessage: make(map[int]func(Message)),
		onChat:    make(map[int]func(ChatUpdate)),
		onRead:    make(map[int]func(ReadNotice)),
		lastSeen:  make(map[string]time.Time),
	}, nil
}

// DeviceID returns the stable device identifier used on the stream.
func (c *Client) DeviceID() string { return c.cfg.DeviceID }

// State returns the current stream state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

//
// Handler registration. Each returns an unsubscribe func.
//

// OnStateChange registers a stream lifecycle observer.
func (c *Client) OnStateChange(fn func(State)) func() {
	return c.subscribe(func(id int) { c.onState[id] = fn }, func(id int) { delete(c.onState, id) })
}

// OnNewMessage registers a handler for pushed and caught-up messages.
func (c *Client) OnNewMessage(fn func(Message)) func() {
	return c.subscribe(func(id int) { c.onMessage[id] = fn }, func(id int) { delete(c.onMessage, id) })
}

// OnChatUpdated registers a handler for chat-list reordering events.
func (c *Client) OnChatUpdated(fn func(ChatUpdate)) func() {
	return c.subscribe(func(id int) { c.onChat[id] = fn }, func(id int) { delete(c.onChat, id) })
}

// OnMessagesRead registers a handler for read-receipt notifications.
func (c *Client) OnMessagesRead(fn func(ReadNotice)) func() {
	return c.subscribe(func(id int) { c.onRead[id] = fn }, func(id int) { delete(c.onRead, id) })
}

func (c *Client) subscribe(add func(id int), remove func(id int)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	add(id)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		remove(id)
		c.mu.Unlock()
	}
}

//
// Stream lifecycle
//

// Run keeps the event stream open until ctx is canceled, reconnecting with
// exponential backoff after every failure. It returns ctx.Err() on cancel.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.MinBackoff
	for {
		c.setState(StateConnecting)
		connectedAt, err := c.stream(ctx)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("stream closed")
		}

		// A stream that held for a while earns a fresh backoff.
		if !connectedAt.IsZero() && time.Since(connectedAt) > c.cfg.MaxBackoff {
			backoff = c.cfg.MinBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
		if backoff *= 2; backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// stream opens one SSE connection and pumps events until it breaks. It
// returns the time the CONNECTED handshake arrived, or zero if it never did.
func (c *Client) stream(ctx context.Context) (time.Time, error) {
	token, err := c.token(ctx)
	if err != nil {
		return time.Time{}, err
	}

	u := c.cfg.BaseURL + "/events?device_id=" + url.QueryEscape(c.cfg.DeviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return time.Time{}, fmt.Errorf("client: stream status %d", resp.StatusCode)
	}

	var connectedAt time.Time
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.handleFrame(ctx, data.Bytes(), &connectedAt)
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return connectedAt, err
	}
	return connectedAt, io.EOF
}

// handleFrame decodes one event payload and fans it out to handlers.
func (c *Client) handleFrame(ctx context.Context, payload []byte, connectedAt *time.Time) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.log.Warn().Err(err).Msg("undecodable frame dropped")
		return
	}

	switch ev.Type {
	case EventConnected:
		*connectedAt = time.Now()
		c.setState(StateConnected)
		if c.cfg.AutoCatchUp {
			c.catchUpAll(ctx)
		}
	case EventNewMessage:
		if ev.Message != nil {
			c.noteSeen(ev.Message.ChatID, ev.Message.CreatedAt)
			emit(snapshot(&c.mu, c.onMessage), *ev.Message)
		}
	case EventChatUpdated:
		if ev.Chat != nil {
			emit(snapshot(&c.mu, c.onChat), *ev.Chat)
		}
	case EventMessagesRead:
		if ev.Read != nil {
			emit(snapshot(&c.mu, c.onRead), *ev.Read)
		}
	default:
		// Unknown kinds are ignored so servers can add events freely.
	}
}

// snapshot copies the handler set under the lock so handlers run outside it
// and may themselves subscribe or unsubscribe.
func snapshot[T any](mu *sync.Mutex, m map[int]func(T)) []func(T) {
	mu.Lock()
	defer mu.Unlock()
	out := make([]func(T), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

func emit[T any](fns []func(T), v T) {
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	fns := make([]func(State), 0, len(c.onState))
	for _, fn := range c.onState {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	if !changed {
		return
	}
	emit(fns, s)
}

// noteSeen advances the per-chat high-water mark used by auto catch-up.
func (c *Client) noteSeen(chatID string, at time.Time) {
	c.mu.Lock()
	if at.After(c.lastSeen[chatID]) {
		c.lastSeen[chatID] = at
	}
	c.mu.Unlock()
}

// catchUpAll fetches missed messages for every known chat and replays them
// through the new-message handlers in order.
func (c *Client) catchUpAll(ctx context.Context) {
	c.mu.Lock()
	marks := make(map[string]time.Time, len(c.lastSeen))
	for id, t := range c.lastSeen {
		marks[id] = t
	}
	c.mu.Unlock()

	for chatID, since := range marks {
		msgs, err := c.CatchUp(ctx, chatID, since)
		if err != nil {
			c.log.Warn().Err(err).Str("chat_id", chatID).Msg("catch-up failed")
			continue
		}
		fns := snapshot(&c.mu, c.onMessage)
		for i := range msgs {
			c.noteSeen(chatID, msgs[i].CreatedAt)
			emit(fns, msgs[i])
		}
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.cfg.TokenSource != nil {
		return c.cfg.TokenSource(ctx)
	}
	return c.cfg.Token, nil
}
