package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "adorable:session:" // Session data: adorable:session:{session_id}
	userSessionPrefix = "adorable:user:"    // Set of session IDs per user: adorable:user:{user_id}
	sessionTTL        = 24 * time.Hour
)

// Tracker records session state transitions for observability.
type Tracker interface {
	Begin(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
}

// RedisTracker stores session records in Redis with a TTL.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker creates a new RedisTracker
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client}
}

// Begin stores a fresh session record and indexes it under its user.
func (t *RedisTracker) Begin(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	sessionKey := sessionKeyPrefix + s.SessionID
	userKey := userSessionPrefix + s.UserID

	pipe := t.client.Pipeline()
	pipe.Set(ctx, sessionKey, data, sessionTTL)
	pipe.SAdd(ctx, userKey, s.SessionID)
	pipe.Expire(ctx, userKey, sessionTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session %s: %w", s.SessionID, err)
	}
	return nil
}

// Update overwrites the session record with its current state.
func (t *RedisTracker) Update(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := t.client.Set(ctx, sessionKeyPrefix+s.SessionID, data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("update session %s: %w", s.SessionID, err)
	}
	return nil
}

// Get retrieves a session record by id.
func (t *RedisTracker) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := t.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &s, nil
}

// ListByUser returns the session ids recorded for a user.
func (t *RedisTracker) ListByUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := t.client.SMembers(ctx, userSessionPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %s: %w", userID, err)
	}
	return ids, nil
}
