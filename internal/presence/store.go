// Package presence tracks which users currently hold an open live stream,
// backed by Redis so every node sees the same view. A device's presence key
// carries a TTL and is refreshed on each stream keepalive; a crashed process
// therefore ages its devices out instead of leaving them online forever.
//
// Presence is a convenience signal, not an authorization or delivery
// mechanism. The whole package is optional: a nil *Store is a valid no-op.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store marks devices online and answers online-status queries.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("presence: redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

func deviceKey(userID, deviceID string) string {
	return "presence:" + userID + ":" + deviceID
}

func userKey(userID string) string {
	return "presence:user:" + userID
}

// MarkOnline records the device as online. The per-user counter key expires
// with the same TTL so IsOnline is a single GET.
func (s *Store) MarkOnline(ctx context.Context, userID, deviceID string) error {
	if s == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, deviceKey(userID, deviceID), time.Now().Unix(), s.ttl)
	pipe.Incr(ctx, userKey(userID))
	pipe.Expire(ctx, userKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Refresh extends the device's presence TTL; called on stream keepalives.
func (s *Store) Refresh(ctx context.Context, userID, deviceID string) error {
	if s == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, deviceKey(userID, deviceID), s.ttl)
	pipe.Expire(ctx, userKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// MarkOffline clears the device's presence on stream close.
func (s *Store) MarkOffline(ctx context.Context, userID, deviceID string) error {
	if s == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, deviceKey(userID, deviceID))
	pipe.Decr(ctx, userKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline reports whether the user has at least one live device. A nil
// store reports everyone offline.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	n, err := s.rdb.Get(ctx, userKey(userID)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}
