package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemEngine(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	r := gin.New()
	r.POST("/chats/:id/messages", func(c *gin.Context) {
		c.Set(userIDKey, "alice")
		c.Next()
	}, IdempotencyValidator(opts, lookup), func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c)})
	})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeaderPassesThrough(t *testing.T) {
	r := idemEngine(IdempotencyOptions{}, nil)
	w := postWithKey(r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("replay flagged without a key: %s", w.Body.String())
	}
}

func TestIdempotencyValidator_RejectsMalformedKey(t *testing.T) {
	r := idemEngine(IdempotencyOptions{}, nil)

	for _, key := range []string{"has spaces", "emoji-⚡", strings.Repeat("x", 201)} {
		w := postWithKey(r, key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d, want 400", key, w.Code)
		}
	}
}

func TestIdempotencyValidator_StashesValidKey(t *testing.T) {
	r := idemEngine(IdempotencyOptions{}, nil)
	w := postWithKey(r, "retry-42.a_b~c:d")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "retry-42.a_b~c:d") {
		t.Fatalf("key not stashed: %s", w.Body.String())
	}
}

func TestIdempotencyValidator_MarksReplayFromLookup(t *testing.T) {
	var gotUser, gotChat, gotKey string
	lookup := func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
		gotUser, gotChat, gotKey = userID, chatID, key
		return true, nil
	}
	r := idemEngine(IdempotencyOptions{}, lookup)

	w := postWithKey(r, "retry-1")
	if !strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("replay not flagged: %s", w.Body.String())
	}
	if gotUser != "alice" || gotChat != "c1" || gotKey != "retry-1" {
		t.Fatalf("lookup scope = (%s, %s, %s)", gotUser, gotChat, gotKey)
	}
}

func TestIdempotencyValidator_LookupErrorDoesNotBlock(t *testing.T) {
	lookup := func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
		return false, context.DeadlineExceeded
	}
	r := idemEngine(IdempotencyOptions{}, lookup)

	w := postWithKey(r, "retry-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite lookup failure", w.Code)
	}
	if strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("failed lookup flagged a replay: %s", w.Body.String())
	}
}
