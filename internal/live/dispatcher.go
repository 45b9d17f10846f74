// Package live – event dispatcher.
//
// Dispatch is fire-and-forget by contract: there is no queue, no persistence
// of missed events, and no acknowledgment. A failed sink write is logged and
// swallowed; it never fails the triggering request. Disconnected devices
// recover through the catch-up fetch, not through the dispatcher.
package live

import (
	"github.com/rs/zerolog"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// Relay forwards locally dispatched events to registries on other nodes.
// Implemented by Bridge; nil when the deployment is single-node.
type Relay interface {
	Publish(userID string, ev domain.Event)
}

// Dispatcher pushes events to every live sink of a target user. It is a pure
// function of the registry and never touches persistence.
type Dispatcher struct {
	reg   *Registry
	log   zerolog.Logger
	relay Relay
}

// NewDispatcher builds a dispatcher over the given registry. relay may be
// nil; when set, every locally dispatched event is also republished for
// other nodes.
func NewDispatcher(reg *Registry, log zerolog.Logger, relay Relay) *Dispatcher {
	return &Dispatcher{reg: reg, log: log, relay: relay}
}

// Dispatch delivers ev to every sink currently registered for userID, best
// effort. A write failure on one sink does not prevent delivery to the
// user's other sinks and is never surfaced to the caller.
func (d *Dispatcher) Dispatch(userID string, ev domain.Event) {
	d.DeliverLocal(userID, ev)
	if d.relay != nil {
		d.relay.Publish(userID, ev)
	}
}

// DispatchMany applies Dispatch to every target user, e.g. all participants
// of a chat.
func (d *Dispatcher) DispatchMany(userIDs []string, ev domain.Event) {
	for _, uid := range userIDs {
		d.Dispatch(uid, ev)
	}
}

// DeliverLocal fans ev out to the local registry only. The bridge feeds
// events originating on other nodes through here so they are not republished.
func (d *Dispatcher) DeliverLocal(userID string, ev domain.Event) {
	for _, s := range d.reg.SinksFor(userID) {
		if err := s.Send(ev); err != nil {
			dispatchFailures.WithLabelValues(string(ev.Type)).Inc()
			d.log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("event_type", string(ev.Type)).
				Msg("live dispatch: sink write failed")
			continue
		}
		dispatchedEvents.WithLabelValues(string(ev.Type)).Inc()
	}
}
