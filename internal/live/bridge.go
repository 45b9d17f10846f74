// Package live – optional NATS bridge.
//
// In a multi-node deployment each process holds its own in-memory registry,
// so a user's devices may be connected to different nodes. The bridge
// republishes every locally dispatched event on a per-user NATS subject and
// delivers events published by other nodes to the local registry. Delivery
// guarantees do not change: fan-out stays best-effort and at-most-once, the
// catch-up fetch remains the correctness backstop.
//
// The bridge is off by default; with no NATS URL configured the dispatcher
// runs purely in-process.
package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// subjectPrefix scopes bridge traffic; the wildcard subscription below
// matches one token for the user ID.
const subjectPrefix = "live.user."

// envelope is the bridge wire format. Node lets receivers drop their own
// publications.
type envelope struct {
	Node   string       `json:"node"`
	UserID string       `json:"user_id"`
	Event  domain.Event `json:"event"`
}

// Bridge relays dispatched events between nodes over NATS.
type Bridge struct {
	nc   *nats.Conn
	node string
	log  zerolog.Logger
	sub  *nats.Subscription
}

// NewBridge connects to NATS. node must be unique per process (hostname or
// configured name); it is used to suppress echo of this node's own events.
func NewBridge(url, node string, log zerolog.Logger) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("messenger-"+node),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("bridge: nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("bridge: nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect: %w", err)
	}
	return &Bridge{nc: nc, node: node, log: log}, nil
}

// Start subscribes to all per-user subjects and feeds foreign events into
// deliver (the dispatcher's local fan-out). Call once after the dispatcher
// exists.
func (b *Bridge) Start(deliver func(userID string, ev domain.Event)) error {
	sub, err := b.nc.Subscribe(subjectPrefix+"*", func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			b.log.Warn().Err(err).Msg("bridge: malformed envelope dropped")
			return
		}
		if env.Node == b.node {
			return
		}
		deliver(env.UserID, env.Event)
	})
	if err != nil {
		return fmt.Errorf("bridge: subscribe: %w", err)
	}
	b.sub = sub
	return nil
}

// Publish republishes a locally dispatched event for other nodes. Best
// effort, like every other leg of live delivery: failures are logged and
// swallowed.
func (b *Bridge) Publish(userID string, ev domain.Event) {
	data, err := json.Marshal(envelope{Node: b.node, UserID: userID, Event: ev})
	if err != nil {
		b.log.Warn().Err(err).Msg("bridge: marshal failed")
		return
	}
	if err := b.nc.Publish(subjectPrefix+userID, data); err != nil {
		b.log.Warn().Err(err).Str("user_id", userID).Msg("bridge: publish failed")
	}
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
}
