package repo

import (
	"context"
	"testing"
	"time"

	"github.com/mvasilakos/go-messenger-backend/internal/domain"
)

func TestIdempotency_StoreAndLookup(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "c1", "key-1", "m1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.MessageID != "m1" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "c1", "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got == nil || got.MessageID != "m1" {
		t.Fatalf("lookup mismatch: %+v", got)
	}
}

func TestGetIdempotency_MissReturnsNilNil(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	got, err := GetIdempotency(context.Background(), db, "u1", "c1", "nope", time.Now().UTC())
	if err != nil || got != nil {
		t.Fatalf("miss = %+v, %v; want nil, nil", got, err)
	}
}

func TestGetIdempotency_ExpiredRecordIgnored(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "c1", "key-1", "m1", 201, time.Nanosecond); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := GetIdempotency(ctx, db, "u1", "c1", "key-1", time.Now().UTC())
	if err != nil || got != nil {
		t.Fatalf("expired record still served: %+v, %v", got, err)
	}
}

func TestCreateIdempotency_KeyScopedByUserAndChat(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "c1", "key-1", "m1", 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// Same key under a different user or chat is a distinct operation.
	if _, err := CreateIdempotency(ctx, db, "u2", "c1", "key-1", "m2", 201, time.Hour); err != nil {
		t.Fatalf("other user create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "c2", "key-1", "m3", 201, time.Hour); err != nil {
		t.Fatalf("other chat create: %v", err)
	}
}
