package repo

import (
	"context"
	"testing"
	"time"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

func TestUpsertReadReceipts_IdempotentAcrossRetries(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, _ := CreateChat(ctx, db, "t")
	m, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := UpsertReadReceipts(ctx, db, "bob", []string{m.ID}); err != nil {
			t.Fatalf("UpsertReadReceipts attempt %d: %v", i, err)
		}
	}

	n, err := CountReadReceipts(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("CountReadReceipts: %v", err)
	}
	if n != 1 {
		t.Fatalf("receipt count = %d after retries, want 1", n)
	}
}

func TestUpsertReadReceipts_DistinctReadersAccumulate(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "alice", "alice", "")

	chat, _ := CreateChat(ctx, db, "t")
	m, err := CreateMessage(db, chat.ID, "alice", domain.MessageTypeText, "m", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := UpsertReadReceipts(ctx, db, "bob", []string{m.ID}); err != nil {
		t.Fatalf("bob receipt: %v", err)
	}
	if err := UpsertReadReceipts(ctx, db, "carol", []string{m.ID}); err != nil {
		t.Fatalf("carol receipt: %v", err)
	}

	readers, err := ListReaderIDs(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("ListReaderIDs: %v", err)
	}
	if len(readers) != 2 {
		t.Fatalf("readers = %v, want 2 entries", readers)
	}
}

func TestUpsertReadReceipts_EmptySetIsNoop(t *testing.T) {
	db := newTestDB(t /* no tables needed */)
	if err := UpsertReadReceipts(context.Background(), db, "bob", nil); err != nil {
		t.Fatalf("empty upsert errored: %v", err)
	}
}
