package live

import (
	"errors"
	"testing"
	"time"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

func timeNowForTest() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func TestEventSink_SendAndDrain(t *testing.T) {
	s := NewEventSink(4)
	ev := domain.ChatUpdatedEvent("c1", timeNowForTest())
	if err := s.Send(ev); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-s.Events():
		if got.Type != domain.EventChatUpdated || got.Chat == nil || got.Chat.ChatID != "c1" {
			t.Fatalf("drained wrong event: %+v", got)
		}
	default:
		t.Fatal("event not buffered")
	}
}

func TestEventSink_FullBufferDropsEvent(t *testing.T) {
	s := NewEventSink(1)
	ev := domain.ChatUpdatedEvent("c1", timeNowForTest())
	if err := s.Send(ev); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := s.Send(ev); !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("second Send err = %v, want ErrSlowConsumer", err)
	}
}

func TestEventSink_SendAfterClose(t *testing.T) {
	s := NewEventSink(1)
	s.Close()
	if err := s.Send(domain.ChatUpdatedEvent("c1", timeNowForTest())); !errors.Is(err, ErrSinkClosed) {
		t.Fatalf("Send after close err = %v, want ErrSinkClosed", err)
	}
}

func TestEventSink_CloseIsIdempotent(t *testing.T) {
	s := NewEventSink(1)
	s.Close()
	s.Close() // must not panic

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestEventSink_MinimumBuffer(t *testing.T) {
	s := NewEventSink(0)
	if err := s.Send(domain.ChatUpdatedEvent("c1", timeNowForTest())); err != nil {
		t.Fatalf("Send on min-buffer sink: %v", err)
	}
}
