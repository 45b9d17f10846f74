package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
	"github.com/mvasilakos/go-messenger-backend/internal/repo"
)

func TestChatCreate_CreatorAlwaysIncludedAndDeduped(t *testing.T) {
	db := newServiceDB(t, fullSchema()...)
	svc := NewChatService(db)
	ctx := context.Background()

	chat, err := svc.Create(ctx, "alice", "plans", []string{"bob", "alice", " bob ", ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ids, err := repo.ListParticipantIDs(ctx, db, chat.ID)
	if err != nil {
		t.Fatalf("ListParticipantIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("participants = %v, want alice and bob only", ids)
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found["alice"] || !found["bob"] {
		t.Fatalf("participants = %v, creator or peer missing", ids)
	}
}

func TestChatCreate_TitleNormalization(t *testing.T) {
	db := newServiceDB(t, fullSchema()...)
	svc := NewChatService(db)
	svc.TitleLocale = language.English
	ctx := context.Background()

	cases := []struct {
		in, want string
	}{
		{"  weekend   trip  ", "Weekend Trip"},
		{"", ""}, // direct chats carry no title
		{"ALL CAPS", "ALL CAPS"},
	}
	for _, tc := range cases {
		chat, err := svc.Create(ctx, "alice", tc.in, nil)
		if err != nil {
			t.Fatalf("Create(%q): %v", tc.in, err)
		}
		if chat.Title != tc.want {
			t.Fatalf("title = %q, want %q", chat.Title, tc.want)
		}
	}
}

func TestChatCreate_TitleClippedToMaxRunes(t *testing.T) {
	db := newServiceDB(t, fullSchema()...)
	svc := NewChatService(db)
	svc.TitleMaxLen = 8

	chat, err := svc.Create(context.Background(), "alice", strings.Repeat("a", 20), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := len([]rune(chat.Title)); got != 8 {
		t.Fatalf("title length = %d runes, want 8", got)
	}
}

func TestChatGet_AccessGateAndNotFound(t *testing.T) {
	db := newServiceDB(t, fullSchema()...)
	svc := NewChatService(db)
	ctx := context.Background()

	chat, err := svc.Create(ctx, "alice", "t", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, chat.ID, "mallory"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("outsider Get err = %v, want ErrAccessDenied", err)
	}
	got, err := svc.Get(ctx, chat.ID, "alice")
	if err != nil || got.ID != chat.ID {
		t.Fatalf("member Get = %+v, %v", got, err)
	}
	// A participant row without a chat row surfaces as not found.
	if err := repo.AddParticipant(ctx, db, "ghost", "alice"); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if _, err := svc.Get(ctx, "ghost", "alice"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("ghost Get err = %v, want ErrChatNotFound", err)
	}
}

func TestChatList_OrderedByFreshness(t *testing.T) {
	db := newServiceDB(t, fullSchema()...)
	chatSvc := NewChatService(db)
	msgSvc := &MessageService{DB: db}
	ctx := context.Background()

	u := domain.User{ID: "alice", Username: "alice", CreatedAt: time.Now().UTC()}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	older, err := chatSvc.Create(ctx, "alice", "older", nil)
	if err != nil {
		t.Fatalf("Create older: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := chatSvc.Create(ctx, "alice", "newer", nil)
	if err != nil {
		t.Fatalf("Create newer: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	// A send into the older chat bumps it to the top.
	if _, err := msgSvc.Send(ctx, older.ID, "alice", domain.MessageTypeText, "bump", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	chats, err := chatSvc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].ID != older.ID || chats[1].ID != newer.ID {
		t.Fatalf("order = [%s %s], want bumped chat first", chats[0].Title, chats[1].Title)
	}
}
