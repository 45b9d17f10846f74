package repo

import (
	"context"
	"testing"
	"time"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

func TestCreateMessage_And_GetMessageEnriched(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "/a.png")

	chat, err := CreateChat(ctx, db, "t")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	m, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "hello", nil, at)
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	got, err := GetMessageEnriched(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("GetMessageEnriched: %v", err)
	}
	if got.Body != "hello" || got.ChatID != chat.ID {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Sender == nil || got.Sender.Username != "alice" || got.Sender.AvatarURL != "/a.png" {
		t.Fatalf("sender not enriched: %+v", got.Sender)
	}
}

func TestGetMessageEnriched_UnknownSenderFails(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	chat, err := CreateChat(ctx, db, "t")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	// No user row for the sender: the inner join must yield nothing.
	m, err := CreateMessage(db, chat.ID, "ghost", domain.MessageTypeText, "hi", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := GetMessageEnriched(ctx, db, m.ID); err == nil {
		t.Fatal("expected error for message without sender row")
	}
}

func TestCreateMessage_PersistsAttachment(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, err := CreateChat(ctx, db, "t")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	att := &domain.Attachment{URL: "/media/clip.mp4", Name: "clip.mp4", Size: 1024, Duration: 12.5}
	m, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeVideo, "", att, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	got, err := GetMessage(db, m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Attachment == nil || got.Attachment.URL != "/media/clip.mp4" || got.Attachment.Duration != 12.5 {
		t.Fatalf("attachment round-trip mismatch: %+v", got.Attachment)
	}
}

func TestListMessagesSince_StrictlyAfterAndOrdered(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, err := CreateChat(ctx, db, "t")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		m, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("CreateMessage %d: %v", i, err)
		}
		ids = append(ids, m.ID)
	}

	// Boundary check: a message created exactly at `since` is excluded.
	got, err := ListMessagesSince(ctx, db, chat.ID, base.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("ListMessagesSince: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[3] {
		t.Fatalf("wrong order/content: %v %v", got[0].ID, got[1].ID)
	}
	if got[0].Sender == nil || got[0].Sender.Username != "alice" {
		t.Fatalf("catch-up rows not enriched: %+v", got[0].Sender)
	}
}

func TestListMessagesSince_ZeroSinceReturnsAll_LimitCaps(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, err := CreateChat(ctx, db, "t")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("CreateMessage %d: %v", i, err)
		}
	}

	all, err := ListMessagesSince(ctx, db, chat.ID, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListMessagesSince(zero): %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d messages, want 5", len(all))
	}

	capped, err := ListMessagesSince(ctx, db, chat.ID, time.Time{}, 3)
	if err != nil {
		t.Fatalf("ListMessagesSince(limit): %v", err)
	}
	if len(capped) != 3 {
		t.Fatalf("got %d messages with limit 3", len(capped))
	}
}

func TestMarkMessagesRead_ScopedToChat(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chatA, _ := CreateChat(ctx, db, "a")
	chatB, _ := CreateChat(ctx, db, "b")
	inA, err := CreateMessage(db, chatA.ID, "alice", domain.MessageTypeText, "m", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage A: %v", err)
	}
	inB, err := CreateMessage(db, chatB.ID, "alice", domain.MessageTypeText, "m", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage B: %v", err)
	}

	// Both IDs submitted against chat A: only A's message may flip.
	if err := MarkMessagesRead(ctx, db, chatA.ID, []string{inA.ID, inB.ID}); err != nil {
		t.Fatalf("MarkMessagesRead: %v", err)
	}
	gotA, _ := GetMessage(db, inA.ID)
	gotB, _ := GetMessage(db, inB.ID)
	if !gotA.Read {
		t.Fatal("message in chat A not marked read")
	}
	if gotB.Read {
		t.Fatal("message in chat B marked read through wrong chat")
	}
}

func TestMessagesStats_CountAndMax(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, _ := CreateChat(ctx, db, "t")
	count, maxAt, err := MessagesStats(ctx, db, chat.ID)
	if err != nil {
		t.Fatalf("MessagesStats(empty): %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("empty chat stats = %d, %v", count, maxAt)
	}

	latest := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, latest.Add(-time.Minute)); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, latest); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	count, maxAt, err = MessagesStats(ctx, db, chat.ID)
	if err != nil {
		t.Fatalf("MessagesStats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(latest) {
		t.Fatalf("stats = %d, %v; want 2, %v", count, maxAt, latest)
	}
}
