// Package live implements the in-process real-time delivery layer: a
// connection registry mapping users to their per-device live sinks, a
// best-effort event dispatcher that fans events out to every connected
// device, and the SSE sink implementation used by the stream endpoint.
//
// The registry holds state only for the lifetime of the process. There is no
// persistence of undelivered events and no replay; reconnecting clients
// recover missed messages through the catch-up fetch.
package live

import (
	"sync"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// Sink is one open push-channel to one connected device.
type Sink interface {
	// Send writes one event to the device. It must not block indefinitely.
	Send(ev domain.Event) error
	// Close tears the channel down. It must be safe to call more than once.
	Close()
}

// entry pairs a sink with the device identifier it was registered under.
type entry struct {
	deviceID string
	sink     Sink
}

// Registry is the process-wide map from user ID to that user's active live
// sinks, in connection order. Devices, not users, are the addressable
// delivery unit: a user may have several simultaneous sessions, each with its
// own lifecycle.
//
// Invariants:
//   - at most one sink per (user, device) pair; registering a second stream
//     for the same device evicts and closes the stale one first
//   - an empty sink list is never retained; the user key is deleted when the
//     last sink closes
//
// All mutations are guarded by a single mutex; the supersession
// check-then-act in Register happens entirely under it. Construct one
// Registry at process start rather than sharing a package-level singleton so
// tests can run against isolated instances.
type Registry struct {
	mu    sync.Mutex
	users map[string][]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string][]entry)}
}

// Register adds a sink for (userID, deviceID). If a sink already exists for
// that device pair it is removed and closed first: the newest stream from a
// device wins, so a reconnect after a network blip does not leak its
// predecessor. An in-flight dispatch racing the supersession may or may not
// reach the old sink; neither outcome is guaranteed.
func (r *Registry) Register(userID, deviceID string, s Sink) {
	var stale Sink

	r.mu.Lock()
	list := r.users[userID]
	for i, e := range list {
		if e.deviceID == deviceID {
			stale = e.sink
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	r.users[userID] = append(list, entry{deviceID: deviceID, sink: s})
	total := r.totalLocked()
	r.mu.Unlock()

	connectionsGauge.Set(float64(total))
	if stale != nil {
		stale.Close()
	}
}

// Unregister removes the sink from userID's list by identity and deletes the
// user key when the list empties. It is idempotent: calling it for a sink
// that was already removed or superseded is a no-op, so transport-close
// cleanup can run unconditionally.
func (r *Registry) Unregister(userID string, s Sink) {
	r.mu.Lock()
	list := r.users[userID]
	for i, e := range list {
		if e.sink == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.users, userID)
	} else {
		r.users[userID] = list
	}
	total := r.totalLocked()
	r.mu.Unlock()

	connectionsGauge.Set(float64(total))
}

// SinksFor returns a snapshot of the sinks currently registered for userID.
// Dispatch writes happen outside the registry lock.
func (r *Registry) SinksFor(userID string) []Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.users[userID]
	if len(list) == 0 {
		return nil
	}
	out := make([]Sink, len(list))
	for i, e := range list {
		out[i] = e.sink
	}
	return out
}

// Connections returns the number of sinks registered for userID.
func (r *Registry) Connections(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID])
}

// Users returns the number of distinct users with at least one sink.
func (r *Registry) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Registry) totalLocked() int {
	n := 0
	for _, list := range r.users {
		n += len(list)
	}
	return n
}
