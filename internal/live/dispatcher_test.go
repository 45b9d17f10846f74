package live

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

// recordingRelay captures bridge publications.
type recordingRelay struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRelay) Publish(userID string, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID+"/"+string(ev.Type))
}

func TestDispatch_FansOutToAllDevices(t *testing.T) {
	r := NewRegistry()
	phone := &recordingSink{}
	laptop := &recordingSink{}
	r.Register("u1", "phone", phone)
	r.Register("u1", "laptop", laptop)

	d := NewDispatcher(r, zerolog.Nop(), nil)
	d.Dispatch("u1", domain.ChatUpdatedEvent("c1", timeNowForTest()))

	if n := len(phone.sent()); n != 1 {
		t.Fatalf("phone received %d events, want 1", n)
	}
	if n := len(laptop.sent()); n != 1 {
		t.Fatalf("laptop received %d events, want 1", n)
	}
}

func TestDispatch_FailingSinkDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	broken := &recordingSink{err: errors.New("boom")}
	healthy := &recordingSink{}
	r.Register("u1", "phone", broken)
	r.Register("u1", "laptop", healthy)

	d := NewDispatcher(r, zerolog.Nop(), nil)
	d.Dispatch("u1", domain.MessagesReadEvent("c1", "u2", []string{"m1"}))

	if n := len(healthy.sent()); n != 1 {
		t.Fatalf("healthy sink received %d events, want 1", n)
	}
}

func TestDispatch_NoSinksIsNoop(t *testing.T) {
	d := NewDispatcher(NewRegistry(), zerolog.Nop(), nil)
	// Must not panic or block.
	d.Dispatch("offline-user", domain.ChatUpdatedEvent("c1", timeNowForTest()))
}

func TestDispatchMany_ReachesEachTarget(t *testing.T) {
	r := NewRegistry()
	a := &recordingSink{}
	b := &recordingSink{}
	r.Register("alice", "phone", a)
	r.Register("bob", "phone", b)

	d := NewDispatcher(r, zerolog.Nop(), nil)
	d.DispatchMany([]string{"alice", "bob", "offline"}, domain.MessagesReadEvent("c1", "alice", []string{"m1"}))

	if len(a.sent()) != 1 || len(b.sent()) != 1 {
		t.Fatalf("fan-out missed a target: alice=%d bob=%d", len(a.sent()), len(b.sent()))
	}
}

func TestDispatch_RepublishesOnRelay(t *testing.T) {
	r := NewRegistry()
	relay := &recordingRelay{}
	d := NewDispatcher(r, zerolog.Nop(), relay)

	d.Dispatch("u1", domain.ChatUpdatedEvent("c1", timeNowForTest()))

	relay.mu.Lock()
	defer relay.mu.Unlock()
	if len(relay.calls) != 1 || relay.calls[0] != "u1/chat_updated" {
		t.Fatalf("relay calls = %v", relay.calls)
	}
}

func TestDeliverLocal_SkipsRelay(t *testing.T) {
	r := NewRegistry()
	s := &recordingSink{}
	r.Register("u1", "phone", s)
	relay := &recordingRelay{}
	d := NewDispatcher(r, zerolog.Nop(), relay)

	// Events arriving from other nodes must not echo back out.
	d.DeliverLocal("u1", domain.ChatUpdatedEvent("c1", timeNowForTest()))

	if len(s.sent()) != 1 {
		t.Fatalf("local sink missed the event")
	}
	relay.mu.Lock()
	defer relay.mu.Unlock()
	if len(relay.calls) != 0 {
		t.Fatalf("DeliverLocal republished: %v", relay.calls)
	}
}
